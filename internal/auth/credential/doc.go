// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package credential validates usernames, email addresses and passwords.
//
// ValidateUsername and ValidateEmail are pure syntax checks. Password quality
// needs a Corpus of common passwords, so it lives on a Validator:
//
//	corpus, err := credential.DefaultCorpus()
//	v, err := credential.NewValidator(corpus)
//	err = v.ValidatePassword("y0u != n00b1e", "Tintin", "tintin@gmail.com")
//
// Rejections wrap ErrInvalidUsername, ErrInvalidEmail or ErrWeakPassword and
// carry a Reason, available through ReasonOf. Callers trim surrounding
// whitespace before validating.
package credential
