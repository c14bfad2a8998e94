// Package backoff implements the retry pacing used around flaky REST calls:
// exponential delays with full jitter, an attempt cap, and room for
// rate-limit hints to override the next delay.
package backoff

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	defaultBase       = 500 * time.Millisecond
	defaultCap        = 8 * time.Second
	defaultMaxRetries = 5
)

// Backoff paces a retry loop:
//
//	retry := backoff.New()
//	for retry.Next(ctx) {
//		if err := call(); err == nil {
//			break
//		}
//	}
//
// The first Next never sleeps, so the loop always gets one immediate attempt.
type Backoff struct {
	base       time.Duration
	cap        time.Duration
	maxRetries int

	started  bool
	retries  int
	override time.Duration
	finished bool
}

// Option configures a Backoff.
type Option func(*Backoff)

// WithBase sets the first delay, default 500ms.
func WithBase(d time.Duration) Option {
	return func(b *Backoff) { b.base = d }
}

// WithCap bounds the delay growth, default 8s.
func WithCap(d time.Duration) Option {
	return func(b *Backoff) { b.cap = d }
}

// WithMaxRetries caps how many delayed attempts run after the immediate one;
// zero or negative means unlimited. Default 5.
func WithMaxRetries(n int) Option {
	return func(b *Backoff) { b.maxRetries = n }
}

// New builds a Backoff.
func New(opts ...Option) *Backoff {
	b := &Backoff{base: defaultBase, cap: defaultCap, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Next sleeps for the next delay and reports whether the loop should run
// another attempt. It returns false once retries are depleted, Finish was
// called, or ctx is done.
func (b *Backoff) Next(ctx context.Context) bool {
	if b.finished {
		return false
	}
	if !b.started {
		b.started = true
		return true
	}
	if b.maxRetries > 0 && b.retries >= b.maxRetries {
		return false
	}

	delay := b.override
	b.override = 0
	if delay <= 0 {
		ceil := b.cap
		if b.retries < 20 {
			ceil = min(b.cap, b.base<<b.retries)
		}
		// Jitter completo: cualquier punto entre 0 y el techo.
		delay = rand.N(ceil + 1)
	}
	b.retries++

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// SetNext overrides the next delay, e.g. with a rate-limit retry-after hint.
func (b *Backoff) SetNext(d time.Duration) {
	b.override = d
}

// Reset rewinds the backoff to its initial state for reuse.
func (b *Backoff) Reset() {
	b.started = false
	b.retries = 0
	b.override = 0
	b.finished = false
}

// Finish makes every future Next return false.
func (b *Backoff) Finish() {
	b.finished = true
}

// Retries returns how many delayed attempts have run since the last Reset.
func (b *Backoff) Retries() int {
	return b.retries
}
