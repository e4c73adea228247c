// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package password hashes and verifies passwords with bcrypt.
package password

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultWorkFactor is the bcrypt cost used when none is configured.
const DefaultWorkFactor = 13

// maxInputBytes is the number of password bytes bcrypt reads.
const maxInputBytes = 72

// ErrMalformedHash is returned when an encoded hash cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher hashes passwords with bcrypt at a fixed work factor.
// A Hasher is immutable and safe for concurrent use.
type Hasher struct {
	workFactor int
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithWorkFactor sets the bcrypt cost.
func WithWorkFactor(cost int) Option {
	return func(h *Hasher) {
		h.workFactor = cost
	}
}

// NewHasher creates a Hasher. The work factor must lie within bcrypt's
// supported range.
func NewHasher(opts ...Option) (*Hasher, error) {
	h := &Hasher{workFactor: DefaultWorkFactor}
	for _, opt := range opts {
		opt(h)
	}
	if h.workFactor < bcrypt.MinCost || h.workFactor > bcrypt.MaxCost {
		return nil, oops.Code("PASSWORD_WORK_FACTOR_INVALID").
			With("work_factor", h.workFactor).
			With("min", bcrypt.MinCost).
			With("max", bcrypt.MaxCost).
			Errorf("work factor must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return h, nil
}

// WorkFactor returns the configured bcrypt cost.
func (h *Hasher) WorkFactor() int {
	return h.workFactor
}

// Hash produces a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	encoded, err := bcrypt.GenerateFromPassword(truncate(plaintext), h.workFactor)
	if err != nil {
		return "", oops.Code("PASSWORD_HASH_FAILED").
			With("work_factor", h.workFactor).
			Wrap(err)
	}
	return string(encoded), nil
}

// Verify reports whether plaintext matches encodedHash.
// Returns (true, nil) on match, (false, nil) on mismatch, and
// (false, err) wrapping ErrMalformedHash when encodedHash is not a bcrypt hash.
func (h *Hasher) Verify(plaintext, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), truncate(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, oops.Code("PASSWORD_MALFORMED_HASH").
			With("cause", err.Error()).
			Wrap(ErrMalformedHash)
	}
}

// NeedsRehash returns true if encodedHash was produced at a different cost
// than the configured work factor, or cannot be parsed at all.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	return cost != h.workFactor
}

// truncate limits plaintext to the bytes bcrypt actually reads. Recent
// versions of x/crypto reject longer input instead of ignoring the tail.
func truncate(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) > maxInputBytes {
		b = b[:maxInputBytes]
	}
	return b
}
