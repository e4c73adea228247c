// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package token issues and verifies HMAC-signed access and refresh tokens.
//
// Access tokens expire after a fixed lifetime. Refresh tokens never expire;
// instead they carry a binding key derived from the user's password hash at
// issue time, so changing the password invalidates every outstanding refresh
// token without any server-side state.
package token

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Token types carried in the "type" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const (
	// DefaultAccessLifetime is used when no lifetime is configured.
	DefaultAccessLifetime = 15 * time.Minute

	// MinSecretLength is the shortest accepted signing secret, in bytes.
	MinSecretLength = 32
)

// Claims is the JWT payload shared by both token types.
type Claims struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
	jwt.RegisteredClaims
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	Subject   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims are the verified contents of a refresh token.
type RefreshClaims struct {
	Subject    string
	IssuedAt   time.Time
	BindingKey string
}

// Issuer signs and verifies tokens with a single HS256 secret.
// An Issuer is immutable and safe for concurrent use.
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	leeway   time.Duration
	now      func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithAccessLifetime sets how long access tokens remain valid.
func WithAccessLifetime(d time.Duration) Option {
	return func(i *Issuer) {
		i.lifetime = d
	}
}

// WithIssuer sets the "iss" claim and requires it on verification.
func WithIssuer(iss string) Option {
	return func(i *Issuer) {
		i.issuer = iss
	}
}

// WithLeeway allows for clock skew when checking expiry.
func WithLeeway(d time.Duration) Option {
	return func(i *Issuer) {
		i.leeway = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer. The secret is copied and must be at least
// MinSecretLength bytes.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_SECRET_INVALID").
			With("min_length", MinSecretLength).
			Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}

	i := &Issuer{
		secret:   append([]byte(nil), secret...),
		lifetime: DefaultAccessLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.lifetime <= 0 {
		return nil, oops.Code("TOKEN_LIFETIME_INVALID").
			With("lifetime", i.lifetime.String()).
			Errorf("access token lifetime must be positive")
	}
	if i.leeway < 0 {
		return nil, oops.Code("TOKEN_LEEWAY_INVALID").
			With("leeway", i.leeway.String()).
			Errorf("leeway cannot be negative")
	}
	return i, nil
}

// AccessLifetime returns the configured access token lifetime.
func (i *Issuer) AccessLifetime() time.Duration {
	return i.lifetime
}

// IssueAccess mints an access token for subject and returns it with its
// expiry time.
func (i *Issuer) IssueAccess(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, oops.Code("TOKEN_SUBJECT_REQUIRED").Errorf("subject cannot be empty")
	}

	now := i.now()
	expiresAt := now.Add(i.lifetime).Truncate(jwt.TimePrecision)
	claims := Claims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// IssueRefresh mints a refresh token for subject bound to passwordHash.
// The token has no expiry.
func (i *Issuer) IssueRefresh(subject, passwordHash string) (string, error) {
	if subject == "" {
		return "", oops.Code("TOKEN_SUBJECT_REQUIRED").Errorf("subject cannot be empty")
	}

	claims := Claims{
		Type: TypeRefresh,
		Key:  DeriveBindingKey(subject, passwordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   i.issuer,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(i.now()),
		},
	}
	return i.sign(claims)
}

// VerifyAccess checks the signature, type and expiry of an access token.
func (i *Issuer) VerifyAccess(raw string) (AccessClaims, error) {
	claims, err := i.parse(raw, TypeAccess)
	if err != nil {
		return AccessClaims{}, err
	}
	return AccessClaims{
		Subject:   claims.Subject,
		ID:        claims.ID,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: timeOf(claims.ExpiresAt),
	}, nil
}

// ParseRefresh checks the signature and type of a refresh token without
// checking its binding. Use it to learn the subject before loading the
// current password hash, then call CheckBinding.
func (i *Issuer) ParseRefresh(raw string) (RefreshClaims, error) {
	claims, err := i.parse(raw, TypeRefresh)
	if err != nil {
		return RefreshClaims{}, err
	}
	if claims.Key == "" {
		return RefreshClaims{}, oops.Code("TOKEN_MALFORMED").
			With("subject", claims.Subject).
			Wrapf(ErrTokenMalformed, "refresh token has no binding key")
	}
	return RefreshClaims{
		Subject:    claims.Subject,
		IssuedAt:   timeOf(claims.IssuedAt),
		BindingKey: claims.Key,
	}, nil
}

// CheckBinding verifies that claims were issued against currentHash.
func (i *Issuer) CheckBinding(claims RefreshClaims, currentHash string) error {
	want := DeriveBindingKey(claims.Subject, currentHash)
	if subtle.ConstantTimeCompare([]byte(want), []byte(claims.BindingKey)) != 1 {
		return oops.Code("TOKEN_BINDING_MISMATCH").
			With("subject", claims.Subject).
			Wrap(ErrBindingMismatch)
	}
	return nil
}

// VerifyRefresh parses a refresh token and checks its binding against
// currentHash.
func (i *Issuer) VerifyRefresh(raw, currentHash string) (RefreshClaims, error) {
	claims, err := i.ParseRefresh(raw)
	if err != nil {
		return RefreshClaims{}, err
	}
	if err := i.CheckBinding(claims, currentHash); err != nil {
		return RefreshClaims{}, err
	}
	return claims, nil
}

func (i *Issuer) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("type", claims.Type).
			Wrap(err)
	}
	return signed, nil
}

func (i *Issuer) parse(raw, wantType string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithLeeway(i.leeway),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	if wantType == TypeAccess {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Type != wantType {
		return nil, oops.Code("TOKEN_WRONG_TYPE").
			With("want", wantType).
			With("got", claims.Type).
			Wrap(ErrWrongTokenType)
	}
	if claims.Subject == "" {
		return nil, oops.Code("TOKEN_MALFORMED").Wrapf(ErrTokenMalformed, "token has no subject")
	}
	return claims, nil
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
