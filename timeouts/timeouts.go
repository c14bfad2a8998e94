// Package timeouts holds the expiry policies attached to component, modal and
// reaction registrations.
package timeouts

import (
	"sync"
	"time"
)

// Unlimited marks a timeout as having no use cap.
const Unlimited = -1

// Timeout decides when a registration stops being dispatched to. The sweep
// loops poll HasExpired; dispatchers call IncrementUses after every
// successful execution.
type Timeout interface {
	// HasExpired reports whether the registration should be evicted.
	HasExpired(now time.Time) bool

	// IncrementUses records a successful use and reports whether the
	// registration is now depleted and should be removed immediately.
	IncrementUses(now time.Time) bool
}

// Option configures the use cap of Sliding and Static timeouts.
type Option func(*useTracker)

// WithMaxUses caps how many times the registration may execute. Pass
// Unlimited for no cap. Sliding and Static default to single use.
func WithMaxUses(n int) Option {
	return func(u *useTracker) { u.usesLeft = n }
}

type useTracker struct {
	usesLeft int
}

func (u *useTracker) depleted() bool {
	return u.usesLeft == 0
}

func (u *useTracker) use() bool {
	if u.usesLeft > 0 {
		u.usesLeft--
	}
	return u.usesLeft == 0
}

type neverTimeout struct{}

func (neverTimeout) HasExpired(time.Time) bool    { return false }
func (neverTimeout) IncrementUses(time.Time) bool { return false }

// Never returns a policy that never expires; pair it with explicit
// deregistration.
func Never() Timeout {
	return neverTimeout{}
}

type slidingTimeout struct {
	mu sync.Mutex
	useTracker
	lastTriggered time.Time
	timeout       time.Duration
}

// Sliding returns a policy that expires once d passes since the last use.
// The window arms on the first expiry check or use, so the effective start
// is when the owning registry first observes the registration.
func Sliding(d time.Duration, opts ...Option) Timeout {
	t := &slidingTimeout{
		useTracker: useTracker{usesLeft: 1},
		timeout:    d,
	}
	for _, opt := range opts {
		opt(&t.useTracker)
	}
	return t
}

func (t *slidingTimeout) HasExpired(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastTriggered.IsZero() {
		t.lastTriggered = now
	}
	return t.depleted() || now.Sub(t.lastTriggered) > t.timeout
}

func (t *slidingTimeout) IncrementUses(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastTriggered = now
	return t.use()
}

type staticTimeout struct {
	mu sync.Mutex
	useTracker
	timeoutAt time.Time
}

// Static returns a policy that expires at a fixed instant regardless of use.
func Static(at time.Time, opts ...Option) Timeout {
	t := &staticTimeout{
		useTracker: useTracker{usesLeft: 1},
		timeoutAt:  at,
	}
	for _, opt := range opts {
		opt(&t.useTracker)
	}
	return t
}

func (t *staticTimeout) HasExpired(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.depleted() || now.After(t.timeoutAt)
}

func (t *staticTimeout) IncrementUses(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.use()
}
