// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package credential

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Password length bounds, in characters, inclusive.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

// Validator checks password quality against a common-password corpus.
// A Validator is immutable and safe for concurrent use.
type Validator struct {
	corpus *Corpus
}

// NewValidator creates a Validator backed by corpus.
func NewValidator(corpus *Corpus) (*Validator, error) {
	if corpus == nil {
		return nil, oops.Code("CREDENTIAL_VALIDATOR_INVALID").Errorf("password corpus is required")
	}
	return &Validator{corpus: corpus}, nil
}

// ValidatePassword rejects a password that is too short or too long, that
// contains or is contained in the username or email, that is too similar to
// either of them, or that appears in the corpus.
//
// All three inputs are lowercased with the full Unicode mapping before
// comparison, and the length bounds apply to the lowercased password, so a
// password ending in U+0130 can grow past MaxPasswordLength.
func (v *Validator) ValidatePassword(password, username, email string) error {
	password = foldCase(password)
	username = foldCase(username)
	email = foldCase(email)

	n := utf8.RuneCountInString(password)
	switch {
	case n < MinPasswordLength:
		return reject(codeWeakPassword, ErrWeakPassword, ReasonTooShort,
			"password must be at least 8 characters")
	case n > MaxPasswordLength:
		return reject(codeWeakPassword, ErrWeakPassword, ReasonTooLong,
			"password must be at most 64 characters")
	case overlaps(password, username):
		return reject(codeWeakPassword, ErrWeakPassword, ReasonContainsUsername,
			"password must not contain or be contained in the username")
	case overlaps(password, email):
		return reject(codeWeakPassword, ErrWeakPassword, ReasonContainsEmail,
			"password must not contain or be contained in the email")
	case tooSimilar(password, username):
		return reject(codeWeakPassword, ErrWeakPassword, ReasonSimilarToUsername,
			"password is too similar to the username")
	case tooSimilar(password, email):
		return reject(codeWeakPassword, ErrWeakPassword, ReasonSimilarToEmail,
			"password is too similar to the email")
	case v.corpus.Contains(password):
		return reject(codeWeakPassword, ErrWeakPassword, ReasonTooCommon,
			"password is too common")
	}
	return nil
}

// ValidateCredentials validates username, email and password in that order
// and returns the first failure.
func (v *Validator) ValidateCredentials(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return v.ValidatePassword(password, username, email)
}

// overlaps reports whether either string contains the other. An empty
// string is contained in everything.
func overlaps(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
