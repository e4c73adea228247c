// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/credential"
	"github.com/credgate/credgate/internal/auth/password"
	"github.com/credgate/credgate/internal/auth/token"
	"github.com/credgate/credgate/internal/observability"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// memUsers is an in-memory auth.UserRepository.
type memUsers struct {
	mu    sync.Mutex
	users map[ulid.ULID]auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[ulid.ULID]auth.User)}
}

func (r *memUsers) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return &auth.ConflictError{Field: "username"}
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return &auth.ConflictError{Field: "email"}
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *memUsers) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find(func(u auth.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *memUsers) UpdatePassword(_ context.Context, id ulid.ULID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *memUsers) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memUsers) find(match func(auth.User) bool) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

// mockUserRepository is a mock for auth.UserRepository.
type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *auth.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// mockPasswordHasher is a mock for auth.PasswordHasher.
type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	args := m.Called(ctx, plaintext)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordHasher) Verify(ctx context.Context, plaintext, encodedHash string) (bool, error) {
	args := m.Called(ctx, plaintext, encodedHash)
	return args.Bool(0), args.Error(1)
}

func (m *mockPasswordHasher) NeedsRehash(encodedHash string) bool {
	args := m.Called(encodedHash)
	return args.Bool(0)
}

// fixture wires a Service to real collaborators and an in-memory repository.
type fixture struct {
	svc       *auth.Service
	users     *memUsers
	tokens    *token.Issuer
	validator *credential.Validator
	metrics   *observability.Metrics
	logs      *bytes.Buffer
	clock     *clock
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{now: time.Now().UTC()}
	tokens, err := token.NewIssuer(testSecret, token.WithClock(c.Now))
	require.NoError(t, err)

	corpus, err := credential.DefaultCorpus()
	require.NoError(t, err)
	validator, err := credential.NewValidator(corpus)
	require.NoError(t, err)

	f := &fixture{
		users:     newMemUsers(),
		tokens:    tokens,
		validator: validator,
		metrics:   observability.NewMetrics(prometheus.NewRegistry()),
		logs:      &bytes.Buffer{},
		clock:     c,
	}
	f.svc = f.service(t, bcrypt.MinCost)
	return f
}

// service builds another Service over the fixture's repository and tokens,
// hashing at the given cost.
func (f *fixture) service(t *testing.T, cost int) *auth.Service {
	t.Helper()

	hasher, err := password.NewHasher(password.WithWorkFactor(cost))
	require.NoError(t, err)
	pool, err := password.NewPool(hasher, 2)
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc, err := auth.NewService(f.users, pool, f.validator, f.tokens,
		auth.WithLogger(logger),
		auth.WithMetrics(f.metrics))
	require.NoError(t, err)
	return svc
}

const (
	aliceName     = "alice_01"
	aliceEmail    = "alice@example.com"
	alicePassword = "correct horse battery"
)

func (f *fixture) registerAlice(t *testing.T) *auth.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), auth.RegisterRequest{
		Username: aliceName,
		Email:    aliceEmail,
		Password: alicePassword,
	})
	require.NoError(t, err)
	return user
}
