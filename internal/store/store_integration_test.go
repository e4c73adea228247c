// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/credgate/credgate/internal/store"
)

var _ = Describe("Open", func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("credgate_test"),
			postgres.WithUsername("credgate"),
			postgres.WithPassword("credgate"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = container.Terminate(ctx)
	})

	It("returns a pool that answers queries", func() {
		pool, err := store.Open(ctx, connStr, store.WithMaxConns(2))
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(pool.Config().MaxConns).To(Equal(int32(2)))

		var one int
		Expect(pool.QueryRow(ctx, "SELECT 1").Scan(&one)).To(Succeed())
		Expect(one).To(Equal(1))
	})

	It("gives up once retries are spent", func() {
		Expect(container.Stop(ctx, nil)).To(Succeed())

		_, err := store.Open(ctx, connStr, store.WithRetry(2, 10*time.Millisecond))
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).NotTo(ContainSubstring("credgate:credgate"))
	})
})
