// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique field is already taken.
	ErrConflict = errors.New("already exists")

	// ErrInvalidCredentials is returned for every login failure, whether the
	// user is unknown or the password is wrong.
	ErrInvalidCredentials = errors.New("user with given credentials not found")

	// ErrUnauthorized is returned when a token is rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// ConflictError names the unique field that was already taken.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// UnauthorizedError wraps a token verification failure. Its message never
// reveals the reason; errors.Is matches both ErrUnauthorized and the reason.
type UnauthorizedError struct {
	Reason error
}

func (e *UnauthorizedError) Error() string {
	return ErrUnauthorized.Error()
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Reason}
}
