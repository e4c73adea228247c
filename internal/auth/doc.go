// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package auth provides account registration, login and token refresh.
//
// # Domain Types
//
// Users should be created with NewUser. Repository implementations receive
// users whose username, email and password have already passed credential
// validation.
//
// # Services
//
// Service coordinates the credential validator, the password hasher, the
// token issuer and a UserRepository:
//   - Register - validate, hash and store a new user
//   - Login - verify a password and issue an access and refresh token
//   - Refresh - trade a refresh token for a new access token
//   - Authenticate - verify an access token
//   - ChangePassword - replace the password, invalidating refresh tokens
//
// Login failures always surface as ErrInvalidCredentials and token failures
// as *UnauthorizedError, so callers cannot tell which check failed.
package auth
