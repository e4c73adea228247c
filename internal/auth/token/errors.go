// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Verification failure kinds. Each is distinct so callers can log and count
// them; none should be shown to an end user.
var (
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrBindingMismatch  = errors.New("refresh token binding mismatch")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrWrongTokenType   = errors.New("wrong token type")
)

// Kind returns a short label for the verification failure in err, suitable
// for metrics. It returns "" when err is not a verification failure.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrBindingMismatch):
		return "binding_mismatch"
	case errors.Is(err, ErrWrongTokenType):
		return "wrong_type"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return ""
	}
}

// classify maps a jwt parse error onto the package's failure kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return oops.Code("TOKEN_EXPIRED").With("cause", err.Error()).Wrap(ErrTokenExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return oops.Code("TOKEN_SIGNATURE_INVALID").With("cause", err.Error()).Wrap(ErrSignatureInvalid)
	default:
		return oops.Code("TOKEN_MALFORMED").With("cause", err.Error()).Wrap(ErrTokenMalformed)
	}
}
