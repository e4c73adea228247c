// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package password

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// Observer receives the duration of each completed hash or verify call.
type Observer func(op string, d time.Duration)

// Pool bounds the number of concurrent bcrypt operations.
//
// The context passed to Hash and Verify only limits how long a caller waits
// for a free slot. Once started, an operation always runs to completion.
type Pool struct {
	hasher  *Hasher
	sem     *semaphore.Weighted
	size    int64
	observe Observer
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithObserver registers a callback for operation durations.
func WithObserver(fn Observer) PoolOption {
	return func(p *Pool) {
		p.observe = fn
	}
}

// NewPool wraps hasher so that at most size operations run at once.
// A size below 1 defaults to the number of CPUs.
func NewPool(hasher *Hasher, size int, opts ...PoolOption) (*Pool, error) {
	if hasher == nil {
		return nil, oops.Code("PASSWORD_POOL_INVALID").Errorf("hasher is required")
	}
	if size < 1 {
		size = runtime.NumCPU()
	}
	p := &Pool{
		hasher: hasher,
		sem:    semaphore.NewWeighted(int64(size)),
		size:   int64(size),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Size returns the maximum number of concurrent operations.
func (p *Pool) Size() int {
	return int(p.size)
}

// Hash hashes plaintext once a slot is available.
func (p *Pool) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := p.acquire(ctx, "hash"); err != nil {
		return "", err
	}
	defer p.sem.Release(1)

	start := time.Now()
	encoded, err := p.hasher.Hash(plaintext)
	p.record("hash", start)
	return encoded, err
}

// Verify checks plaintext against encodedHash once a slot is available.
func (p *Pool) Verify(ctx context.Context, plaintext, encodedHash string) (bool, error) {
	if err := p.acquire(ctx, "verify"); err != nil {
		return false, err
	}
	defer p.sem.Release(1)

	start := time.Now()
	ok, err := p.hasher.Verify(plaintext, encodedHash)
	p.record("verify", start)
	return ok, err
}

// NeedsRehash delegates to the underlying Hasher. It does not consume a slot.
func (p *Pool) NeedsRehash(encodedHash string) bool {
	return p.hasher.NeedsRehash(encodedHash)
}

func (p *Pool) acquire(ctx context.Context, op string) error {
	err := ctx.Err()
	if err == nil {
		err = p.sem.Acquire(ctx, 1)
	}
	if err != nil {
		return oops.Code("PASSWORD_POOL_WAIT").
			With("operation", op).
			Wrap(err)
	}
	return nil
}

func (p *Pool) record(op string, start time.Time) {
	if p.observe != nil {
		p.observe(op, time.Since(start))
	}
}
