// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package store opens the PostgreSQL connection pool.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Defaults for Open.
const (
	DefaultPingAttempts = 5
	DefaultPingBackoff  = 200 * time.Millisecond
)

type options struct {
	maxConns int32
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithMaxConns caps the pool size. Zero keeps the pgxpool default.
func WithMaxConns(n int32) Option {
	return func(o *options) {
		o.maxConns = n
	}
}

// WithRetry sets how many times the initial ping is retried and the base
// delay of its exponential backoff. A backoff that is not positive means
// DefaultPingBackoff.
func WithRetry(attempts uint64, backoff time.Duration) Option {
	return func(o *options) {
		o.attempts = attempts
		o.backoff = backoff
	}
}

// WithLogger sets the logger used for retry progress.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open parses dsn, creates a pool and pings it until the database answers
// or the retries are spent.
func Open(ctx context.Context, dsn string, opts ...Option) (*pgxpool.Pool, error) {
	o := options{
		attempts: DefaultPingAttempts,
		backoff:  DefaultPingBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		// The DSN may carry a password; keep it out of the error context.
		return nil, oops.Code("STORE_DSN_INVALID").Wrap(err)
	}
	if o.maxConns > 0 {
		cfg.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").
			With("host", cfg.ConnConfig.Host).
			Wrap(err)
	}

	if err := ping(ctx, pool, o); err != nil {
		pool.Close()
		return nil, oops.With("host", cfg.ConnConfig.Host).Wrap(err)
	}
	return pool, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, p pinger, o options) error {
	base := o.backoff
	if base <= 0 {
		// go-retry panics on a non-positive base.
		base = DefaultPingBackoff
	}
	backoff := retry.WithMaxRetries(o.attempts, retry.NewExponential(base))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			o.logger.DebugContext(ctx, "database not ready", "attempt", attempt, "error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_PING_FAILED").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
