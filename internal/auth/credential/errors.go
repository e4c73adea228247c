// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package credential

import (
	"errors"

	"github.com/samber/oops"
)

// Sentinel errors for rejected credentials. Returned errors wrap these and
// carry a Reason in their context.
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrWeakPassword    = errors.New("weak password")
)

// Reason identifies which rule rejected a credential.
type Reason string

// Rejection reasons.
const (
	ReasonTooShort          Reason = "too_short"
	ReasonTooLong           Reason = "too_long"
	ReasonInvalidCharacters Reason = "invalid_characters"
	ReasonMissingAt         Reason = "missing_at"
	ReasonInvalidLocalPart  Reason = "invalid_local_part"
	ReasonInvalidDomain     Reason = "invalid_domain"
	ReasonContainsUsername  Reason = "contains_username"
	ReasonContainsEmail     Reason = "contains_email"
	ReasonSimilarToUsername Reason = "similar_to_username"
	ReasonSimilarToEmail    Reason = "similar_to_email"
	ReasonTooCommon         Reason = "too_common"
)

const (
	reasonKey           = "reason"
	codeInvalidUsername = "CREDENTIAL_INVALID_USERNAME"
	codeInvalidEmail    = "CREDENTIAL_INVALID_EMAIL"
	codeWeakPassword    = "CREDENTIAL_WEAK_PASSWORD"
)

// ReasonOf returns the rejection reason recorded on err, or "" if none.
func ReasonOf(err error) Reason {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	if r, ok := oopsErr.Context()[reasonKey].(string); ok {
		return Reason(r)
	}
	return ""
}

// FieldOf names the credential field a rejection refers to: "username",
// "email" or "password". Any other error yields "unknown".
func FieldOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidUsername):
		return "username"
	case errors.Is(err, ErrInvalidEmail):
		return "email"
	case errors.Is(err, ErrWeakPassword):
		return "password"
	default:
		return "unknown"
	}
}

func reject(code string, sentinel error, reason Reason, msg string) error {
	return oops.Code(code).
		With(reasonKey, string(reason)).
		Wrapf(sentinel, "%s", msg)
}
