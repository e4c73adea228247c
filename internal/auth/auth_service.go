// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth/credential"
	"github.com/credgate/credgate/internal/auth/password"
	"github.com/credgate/credgate/internal/auth/token"
	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/pkg/errutil"
)

// CredentialValidator checks usernames, emails and passwords.
// *credential.Validator satisfies it.
type CredentialValidator interface {
	ValidateCredentials(username, email, password string) error
	ValidatePassword(password, username, email string) error
}

// TokenIssuer mints and verifies access and refresh tokens.
// *token.Issuer satisfies it.
type TokenIssuer interface {
	IssueAccess(subject string) (string, time.Time, error)
	IssueRefresh(subject, passwordHash string) (string, error)
	VerifyAccess(raw string) (token.AccessClaims, error)
	ParseRefresh(raw string) (token.RefreshClaims, error)
	CheckBinding(claims token.RefreshClaims, currentHash string) error
}

var (
	_ CredentialValidator = (*credential.Validator)(nil)
	_ TokenIssuer         = (*token.Issuer)(nil)
)

// RegisterRequest carries the input of a registration.
type RegisterRequest struct {
	Username string
	Email    string
	Password string //nolint:gosec // G117: plaintext only held for the duration of the request
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
}

// Service provides account operations.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	validator CredentialValidator
	tokens    TokenIssuer
	logger    *slog.Logger
	metrics   *observability.Metrics

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets where outcomes are counted. Metrics are optional.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, validator CredentialValidator, tokens TokenIssuer, opts ...Option) (*Service, error) {
	switch {
	case users == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	case hasher == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	case validator == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("credential validator is required")
	case tokens == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token issuer is required")
	}

	s := &Service{
		users:     users,
		hasher:    hasher,
		validator: validator,
		tokens:    tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Register validates the credentials, hashes the password and stores a new
// user. Username and email are trimmed; the password is used as given.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if err := s.validator.ValidateCredentials(username, email, req.Password); err != nil {
		s.rejected(ctx, "registration rejected", err, "username", username)
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login authenticates a user by email and password and issues a token pair.
// Uses constant-time operations to prevent timing-based account enumeration.
//
// When the stored hash was made with a different work factor it is replaced.
// Refresh tokens are bound to the hash, so the replacement also revokes every
// refresh token issued for the user before this login.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*User, TokenPair, error) {
	email = strings.TrimSpace(email)

	user, lookupErr := s.users.GetByEmail(ctx, email)

	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			s.metrics.RecordLogin("error")
			return nil, TokenPair{}, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		targetHash = s.dummy(ctx)
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify, even for unknown users.
	valid, verifyErr := s.hasher.Verify(ctx, plaintext, targetHash)
	if verifyErr != nil {
		if !errors.Is(verifyErr, password.ErrMalformedHash) {
			s.metrics.RecordLogin("error")
			return nil, TokenPair{}, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "verify password").
				Wrap(verifyErr)
		}
		if userExists {
			errutil.LogWarn(ctx, s.logger, "stored password hash is malformed", verifyErr,
				"user_id", user.ID.String())
		}
		valid = false
	}

	if !userExists || !valid {
		s.metrics.RecordLogin("failure")
		return nil, TokenPair{}, invalidCredentials()
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, plaintext)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		s.metrics.RecordLogin("error")
		return nil, TokenPair{}, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue tokens").
			Wrap(err)
	}

	s.metrics.RecordLogin("success")
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return user, pair, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is returned unchanged; it stays valid until the password changes.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, s.unauthorized(ctx, "refresh", err)
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return TokenPair{}, s.unauthorized(ctx, "refresh", oops.Code("TOKEN_MALFORMED").
			With("subject", claims.Subject).
			Wrapf(token.ErrTokenMalformed, "subject is not a user id"))
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, s.unauthorized(ctx, "refresh", err)
		}
		return TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "get user by id").
			With("user_id", id.String()).
			Wrap(err)
	}

	if err := s.tokens.CheckBinding(claims, user.PasswordHash); err != nil {
		return TokenPair{}, s.unauthorized(ctx, "refresh", err)
	}

	access, expiresAt, err := s.tokens.IssueAccess(claims.Subject)
	if err != nil {
		return TokenPair{}, oops.Code("AUTH_REFRESH_FAILED").
			With("operation", "issue access token").
			Wrap(err)
	}
	s.metrics.RecordTokenIssued(token.TypeAccess)

	return TokenPair{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refreshToken,
	}, nil
}

// Authenticate verifies an access token and returns its claims.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (token.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return token.AccessClaims{}, s.unauthorized(ctx, "authenticate", err)
	}
	return claims, nil
}

// AuthenticateHeader extracts a bearer token from an Authorization header
// value and verifies it.
func (s *Service) AuthenticateHeader(ctx context.Context, header string) (token.AccessClaims, error) {
	raw, err := token.BearerToken(header)
	if err != nil {
		return token.AccessClaims{}, s.unauthorized(ctx, "authenticate", err)
	}
	return s.Authenticate(ctx, raw)
}

// ChangePassword replaces a user's password after checking the current one.
// Refresh tokens issued before the change stop verifying.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("USER_NOT_FOUND").With("user_id", userID.String()).Wrap(err)
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}

	valid, err := s.hasher.Verify(ctx, current, user.PasswordHash)
	if err != nil {
		if !errors.Is(err, password.ErrMalformedHash) {
			return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
				With("operation", "verify password").
				With("user_id", userID.String()).
				Wrap(err)
		}
		errutil.LogWarn(ctx, s.logger, "stored password hash is malformed", err, "user_id", userID.String())
	}
	if !valid {
		return invalidCredentials()
	}

	if err := s.validator.ValidatePassword(next, user.Username, user.Email); err != nil {
		s.rejected(ctx, "password change rejected", err, "user_id", userID.String())
		return err
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			With("user_id", userID.String()).
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", userID.String())
	return nil
}

func (s *Service) issuePair(user *User) (TokenPair, error) {
	subject := user.ID.String()

	access, expiresAt, err := s.tokens.IssueAccess(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefresh(subject, user.PasswordHash)
	if err != nil {
		return TokenPair{}, err
	}

	s.metrics.RecordTokenIssued(token.TypeAccess)
	s.metrics.RecordTokenIssued(token.TypeRefresh)
	return TokenPair{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		RefreshToken:    refresh,
	}, nil
}

// rehash upgrades a hash produced at an old cost. Login succeeds regardless.
func (s *Service) rehash(ctx context.Context, user *User, plaintext string) {
	newHash, err := s.hasher.Hash(ctx, plaintext)
	if err != nil {
		errutil.LogWarn(ctx, s.logger, "password rehash failed", err, "user_id", user.ID.String())
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		errutil.LogWarn(ctx, s.logger, "password rehash not stored", err, "user_id", user.ID.String())
		return
	}
	user.PasswordHash = newHash
}

// dummy returns a hash at the configured cost that no password matches.
func (s *Service) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), ulid.Make().String())
		if err != nil {
			errutil.LogWarn(ctx, s.logger, "dummy hash unavailable, using fallback", err)
			h = fallbackDummyHash
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *Service) unauthorized(ctx context.Context, operation string, reason error) error {
	kind := token.Kind(reason)
	if kind == "" && errors.Is(reason, ErrNotFound) {
		kind = "unknown_subject"
	}
	s.metrics.RecordTokenFailure(kind)
	s.logger.InfoContext(ctx, "token rejected",
		"operation", operation,
		"kind", kind,
		"code", errutil.Code(reason))
	return &UnauthorizedError{Reason: reason}
}

func (s *Service) rejected(ctx context.Context, msg string, err error, attrs ...any) {
	reason := credential.ReasonOf(err)
	field := credential.FieldOf(err)
	s.metrics.RecordRejection(field, string(reason))
	attrs = append(attrs, "field", field, "reason", string(reason))
	s.logger.InfoContext(ctx, msg, attrs...)
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}
