// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package observability provides Prometheus metrics for credential checks
// and token verification.
package observability

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/oops"
)

// Metrics contains custom Prometheus metrics for credgate.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	ValidationRejections *prometheus.CounterVec
	TokenFailures        *prometheus.CounterVec
	TokensIssued         *prometheus.CounterVec
	Logins               *prometheus.CounterVec
	HashDuration         *prometheus.HistogramVec
}

// NewRegistry creates a registry with the standard Go and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewMetrics creates and registers credgate metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ValidationRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_validation_rejections_total",
				Help: "Total number of rejected credentials by field and reason",
			},
			[]string{"field", "reason"},
		),
		TokenFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_token_failures_total",
				Help: "Total number of token verification failures by kind",
			},
			[]string{"kind"},
		),
		TokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_tokens_issued_total",
				Help: "Total number of tokens issued by type",
			},
			[]string{"type"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credgate_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credgate_password_hash_seconds",
				Help:    "Duration of bcrypt hash and verify operations",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		m.ValidationRejections,
		m.TokenFailures,
		m.TokensIssued,
		m.Logins,
		m.HashDuration,
	)
	return m
}

// RecordRejection counts a rejected username, email or password.
func (m *Metrics) RecordRejection(field, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.ValidationRejections.WithLabelValues(field, reason).Inc()
}

// RecordTokenFailure counts a failed token verification.
func (m *Metrics) RecordTokenFailure(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.TokenFailures.WithLabelValues(kind).Inc()
}

// RecordTokenIssued counts an issued token of the given type.
func (m *Metrics) RecordTokenIssued(tokenType string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(tokenType).Inc()
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// ObserveHash records the duration of a hash or verify operation.
// Its signature matches password.Observer.
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return oops.With("operation", "gather metrics").Wrap(err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return oops.With("operation", "encode metrics").
				With("family", mf.GetName()).
				Wrap(err)
		}
	}
	return nil
}
