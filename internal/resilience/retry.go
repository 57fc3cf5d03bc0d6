// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience holds the retry policy and circuit breaker wrapped
// around every call the SDK makes to the media service.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultMaxRetries is the retry budget of DefaultPolicy.
	DefaultMaxRetries = 4
	defaultMinBackoff = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
)

// RetryAfterer is implemented by errors that carry a server retry hint.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// Policy retries a function with exponential backoff and jitter while its
// error is classified as transient.
type Policy struct {
	// Name labels retries in logs and metrics (e.g. "query", "save").
	Name string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// MinBackoff is the wait before the first retry; it doubles per retry.
	MinBackoff time.Duration
	// MaxBackoff caps a single wait, including server Retry-After hints.
	MaxBackoff time.Duration
	// Retryable classifies errors. Nil means nothing is retried.
	Retryable func(error) bool
	// OnRetry is called before each wait.
	OnRetry func(retry int, wait time.Duration, err error)
	// DisableJitter makes waits deterministic.
	DisableJitter bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPolicy returns a policy with defaults applied to zero values.
func NewPolicy(name string, maxRetries int, minBackoff, maxBackoff time.Duration, retryable func(error) bool) *Policy {
	p := &Policy{
		Name:       name,
		MaxRetries: maxRetries,
		MinBackoff: minBackoff,
		MaxBackoff: maxBackoff,
		Retryable:  retryable,
	}
	p.normalize()
	return p
}

func (p *Policy) normalize() {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.MinBackoff <= 0 {
		p.MinBackoff = defaultMinBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	if p.MaxBackoff < p.MinBackoff {
		p.MaxBackoff = p.MinBackoff
	}
}

// DefaultPolicy returns the stock policy used when none is configured.
func DefaultPolicy(name string, retryable func(error) bool) *Policy {
	return NewPolicy(name, DefaultMaxRetries, defaultMinBackoff, defaultMaxBackoff, retryable)
}

// Execute runs fn until it succeeds, returns a non-retryable error, the
// retry budget is exhausted or ctx is done. The last error is returned.
func (p *Policy) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.ExecuteWithHook(ctx, fn, nil)
}

// ExecuteWithHook is Execute with a per-call hook that runs after
// p.OnRetry and before each backoff wait.
func (p *Policy) ExecuteWithHook(ctx context.Context, fn func(ctx context.Context) error, hook func(retry int, wait time.Duration, err error)) error {
	if p == nil {
		return fn(ctx)
	}
	var err error
	for retry := 0; ; retry++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if retry >= p.MaxRetries || p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		wait := p.waitFor(retry, err)
		if p.OnRetry != nil {
			p.OnRetry(retry+1, wait, err)
		}
		if hook != nil {
			hook(retry+1, wait, err)
		}
		if sleepErr := SleepWithContext(ctx, wait); sleepErr != nil {
			return err
		}
	}
}

func (p *Policy) waitFor(retry int, err error) time.Duration {
	var hinted RetryAfterer
	if errors.As(err, &hinted) {
		if d := hinted.RetryAfter(); d > 0 {
			if d > p.MaxBackoff {
				return p.MaxBackoff
			}
			return d
		}
	}
	return p.Backoff(retry)
}

// Backoff returns the wait before retry number retry+1.
func (p *Policy) Backoff(retry int) time.Duration {
	if retry > 30 {
		retry = 30
	}
	wait := p.MinBackoff * time.Duration(1<<retry)
	if wait > p.MaxBackoff || wait <= 0 {
		wait = p.MaxBackoff
	}
	if p.DisableJitter {
		return wait
	}
	jitter := time.Duration(p.randInt63n(int64(wait/5 + 1)))
	if wait+jitter > p.MaxBackoff {
		return p.MaxBackoff
	}
	return wait + jitter
}

func (p *Policy) randInt63n(n int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- jitter only
	}
	return p.rnd.Int63n(n)
}

// SleepWithContext waits for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
