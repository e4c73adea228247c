// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/credential"
	"github.com/credgate/credgate/internal/auth/password"
	"github.com/credgate/credgate/internal/auth/postgres"
	"github.com/credgate/credgate/internal/auth/token"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/logging"
	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/internal/store"
	"github.com/credgate/credgate/pkg/errutil"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	registry    *prometheus.Registry
	metrics     *observability.Metrics
	dumpMetrics bool
}

// init loads configuration and sets up logging and metrics for cmd.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.Setup(serviceName, version, cfg.Log.Format, level, cmd.ErrOrStderr())
	a.registry = observability.NewRegistry()
	a.metrics = observability.NewMetrics(a.registry)
	return nil
}

// runE wraps a command body so metrics are written even when it fails.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if a.dumpMetrics && a.registry != nil {
			if werr := observability.WriteText(cmd.ErrOrStderr(), a.registry); werr != nil {
				errutil.LogError(a.logger, "failed to write metrics", werr)
			}
		}
		return err
	}
}

func (a *app) validator() (*credential.Validator, error) {
	var (
		corpus *credential.Corpus
		err    error
	)
	if a.cfg.Corpus.Path != "" {
		corpus, err = credential.LoadCorpus(a.cfg.Corpus.Path)
	} else {
		corpus, err = credential.DefaultCorpus()
	}
	if err != nil {
		return nil, err
	}
	return credential.NewValidator(corpus)
}

func (a *app) hasher() (*password.Pool, error) {
	h, err := password.NewHasher(password.WithWorkFactor(a.cfg.Password.WorkFactor))
	if err != nil {
		return nil, err
	}
	return password.NewPool(h, a.cfg.Password.MaxConcurrency, password.WithObserver(a.metrics.ObserveHash))
}

func (a *app) issuer() (*token.Issuer, error) {
	if a.cfg.Token.Secret == "" {
		return nil, oops.Code("CONFIG_INVALID").
			With("env", config.EnvTokenSecret).
			Errorf("%s environment variable is required", config.EnvTokenSecret)
	}

	opts := []token.Option{
		token.WithAccessLifetime(a.cfg.Token.AccessLifetime),
		token.WithLeeway(a.cfg.Token.Leeway),
	}
	if a.cfg.Token.Issuer != "" {
		opts = append(opts, token.WithIssuer(a.cfg.Token.Issuer))
	}
	return token.NewIssuer([]byte(a.cfg.Token.Secret), opts...)
}

// service connects to the database and builds the account service. The
// returned func closes the pool.
func (a *app) service(ctx context.Context) (*auth.Service, func(), error) {
	if a.cfg.Database.URL == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").
			With("env", config.EnvDatabaseURL).
			Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}

	validator, err := a.validator()
	if err != nil {
		return nil, nil, err
	}
	hasher, err := a.hasher()
	if err != nil {
		return nil, nil, err
	}
	issuer, err := a.issuer()
	if err != nil {
		return nil, nil, err
	}

	pool, err := store.Open(ctx, a.cfg.Database.URL,
		store.WithMaxConns(a.cfg.Database.MaxConns),
		store.WithRetry(uint64(a.cfg.Database.ConnectAttempts), a.cfg.Database.ConnectBackoff), //nolint:gosec // G115: schema keeps it non-negative
		store.WithLogger(a.logger))
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}

	svc, err := auth.NewService(postgres.NewUserRepository(pool), hasher, validator, issuer,
		auth.WithLogger(a.logger),
		auth.WithMetrics(a.metrics))
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return svc, pool.Close, nil
}
