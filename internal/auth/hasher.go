// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"

	"github.com/credgate/credgate/internal/auth/password"
)

// PasswordHasher provides password hashing and verification.
// *password.Pool satisfies it.
type PasswordHasher interface {
	// Hash produces an encoded hash of the password.
	Hash(ctx context.Context, plaintext string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// matching password.ErrMalformedHash when the hash cannot be parsed.
	Verify(ctx context.Context, plaintext, encodedHash string) (bool, error)

	// NeedsRehash reports whether the hash was produced with a different cost.
	NeedsRehash(encodedHash string) bool
}

var _ PasswordHasher = (*password.Pool)(nil)

// fallbackDummyHash is verified against when no user matches and a dummy hash
// at the configured cost could not be produced. It will never match.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const fallbackDummyHash = "$2a$13$AAAAAAAAAAAAAAAAAAAAAOaBcDeFgHiJkLmNoPqRsTuVwXyZ01234"
