// Package repeaters runs a callback on a fixed cadence with an optional run
// cap, setup/teardown hooks and error classification: background jobs like
// presence rotation or cache refresh that outlive any single event.
package repeaters

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/xcg-dev/dgkit"
)

// Unlimited marks a repeater as having no run cap.
const Unlimited = -1

var (
	// ErrAlreadyRunning is returned by Start on a running repeater.
	ErrAlreadyRunning = errors.New("repeaters: already running")

	// ErrNotRunning is returned by Stop on a stopped repeater.
	ErrNotRunning = errors.New("repeaters: not running")
)

// CallbackFunc is one repeater iteration. Errors matching a configured fatal
// error stop the repeater; every other error is logged and the loop keeps
// going.
type CallbackFunc func(ctx context.Context) error

// HookFunc runs once around the loop, before the first iteration or after
// the last one.
type HookFunc func(ctx context.Context)

// Repeater invokes its callback immediately on start and then once per
// interval until the run cap is hit, a fatal error occurs, or Stop is
// called. Iterations run sequentially; a slow callback delays the next one.
type Repeater struct {
	log      *slog.Logger
	callback CallbackFunc
	interval time.Duration
	runCap   int

	before HookFunc
	after  HookFunc
	fatal  []error
	ignore []error

	lifeMu  sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	mu         sync.Mutex
	iterations int
}

// Option configures a Repeater.
type Option func(*Repeater)

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repeater) { r.log = log }
}

// WithRunCount caps how many iterations run before the repeater stops on
// its own. Pass Unlimited for no cap, which is the default.
func WithRunCount(n int) Option {
	return func(r *Repeater) { r.runCap = n }
}

// WithPreCallback runs a hook before the first iteration.
func WithPreCallback(h HookFunc) Option {
	return func(r *Repeater) { r.before = h }
}

// WithPostCallback runs a hook after the loop ends, however it ends.
func WithPostCallback(h HookFunc) Option {
	return func(r *Repeater) { r.after = h }
}

// WithFatalErrors stops the repeater when the callback returns an error
// matching any of these (by errors.Is).
func WithFatalErrors(errs ...error) Option {
	return func(r *Repeater) { r.fatal = append(r.fatal, errs...) }
}

// WithIgnoredErrors silences logging for callback errors matching any of
// these (by errors.Is).
func WithIgnoredErrors(errs ...error) Option {
	return func(r *Repeater) { r.ignore = append(r.ignore, errs...) }
}

// New builds a repeater. The interval must be positive.
func New(interval time.Duration, cb CallbackFunc, opts ...Option) (*Repeater, error) {
	if interval <= 0 {
		return nil, dgkit.Validationf("repeater interval must be positive, got %s", interval)
	}
	if cb == nil {
		return nil, dgkit.Validationf("repeater needs a callback")
	}
	r := &Repeater{
		log:      slog.Default(),
		callback: cb,
		interval: interval,
		runCap:   Unlimited,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// MustNew is New, panicking on invalid declarations.
func MustNew(interval time.Duration, cb CallbackFunc, opts ...Option) *Repeater {
	r, err := New(interval, cb, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Start launches the loop on its own goroutine.
func (r *Repeater) Start() error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.running {
		return ErrAlreadyRunning
	}
	r.running = true
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.run(ctx)
	return nil
}

// Stop cancels the loop and waits for it to exit. The post hook still runs.
func (r *Repeater) Stop() error {
	r.lifeMu.Lock()
	if !r.running {
		r.lifeMu.Unlock()
		return ErrNotRunning
	}
	r.running = false
	r.cancel()
	r.lifeMu.Unlock()
	r.wg.Wait()
	return nil
}

// Iterations returns how many times the callback has been invoked.
func (r *Repeater) Iterations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iterations
}

// Running reports whether the loop is active. A repeater that exhausted its
// run cap reports false even though Stop was never called.
func (r *Repeater) Running() bool {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	return r.running
}

func (r *Repeater) run(ctx context.Context) {
	defer r.wg.Done()
	defer r.markStopped()

	if r.before != nil {
		r.before(ctx)
	}
	if r.after != nil {
		defer r.after(ctx)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	runs := 0
	for {
		if r.runCap >= 0 && runs >= r.runCap {
			return
		}
		runs++
		r.mu.Lock()
		r.iterations++
		r.mu.Unlock()

		if err := r.invoke(ctx); err != nil {
			for _, fatal := range r.fatal {
				if errors.Is(err, fatal) {
					r.log.Error("repeater stopped by fatal error", "err", err)
					return
				}
			}
			if !r.ignored(err) {
				r.log.Error("repeater iteration failed", "err", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Repeater) markStopped() {
	r.lifeMu.Lock()
	r.running = false
	r.lifeMu.Unlock()
}

func (r *Repeater) ignored(err error) bool {
	for _, ig := range r.ignore {
		if errors.Is(err, ig) {
			return true
		}
	}
	return false
}

// invoke contiene el pánico de un callback roto igual que los dispatchers.
func (r *Repeater) invoke(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in repeater callback", "panic", rec)
		}
	}()
	return r.callback(ctx)
}
