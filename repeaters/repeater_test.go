package repeaters

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcg-dev/dgkit"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition never met")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestNewValidates(t *testing.T) {
	var verr *dgkit.ValidationError

	_, err := New(0, func(context.Context) error { return nil })
	assert.ErrorAs(t, err, &verr)

	_, err = New(time.Second, nil)
	assert.ErrorAs(t, err, &verr)

	assert.Panics(t, func() { MustNew(-time.Second, nil) })
}

func TestRunCountStopsTheLoop(t *testing.T) {
	var runs atomic.Int32
	r := MustNew(time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithRunCount(3))

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return !r.Running() })
	assert.Equal(t, int32(3), runs.Load())
	assert.Equal(t, 3, r.Iterations())

	// The loop already ended on its own.
	assert.ErrorIs(t, r.Stop(), ErrNotRunning)
}

func TestStartStopLifecycle(t *testing.T) {
	var runs atomic.Int32
	r := MustNew(time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, r.Start())
	assert.ErrorIs(t, r.Start(), ErrAlreadyRunning)

	// The first iteration is immediate, the second is an hour out.
	waitFor(t, func() bool { return runs.Load() == 1 })
	require.NoError(t, r.Stop())
	assert.False(t, r.Running())
	assert.ErrorIs(t, r.Stop(), ErrNotRunning)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRestartAfterExhaustion(t *testing.T) {
	var runs atomic.Int32
	r := MustNew(time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithRunCount(1))

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return !r.Running() })
	require.NoError(t, r.Start())
	waitFor(t, func() bool { return !r.Running() })
	assert.Equal(t, int32(2), runs.Load())
}

func TestFatalErrorStops(t *testing.T) {
	fatal := errors.New("db gone")
	var runs atomic.Int32
	r := MustNew(time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return fatal
	}, WithFatalErrors(fatal))

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return !r.Running() })
	assert.Equal(t, int32(1), runs.Load())
}

func TestNonFatalErrorsKeepGoing(t *testing.T) {
	var runs atomic.Int32
	r := MustNew(time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("flaky")
	}, WithRunCount(3), WithIgnoredErrors(errors.New("other")))

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return !r.Running() })
	assert.Equal(t, int32(3), runs.Load())
}

func TestHooksRunAroundTheLoop(t *testing.T) {
	var order []string
	done := make(chan struct{})
	r := MustNew(time.Millisecond, func(context.Context) error {
		order = append(order, "run")
		return nil
	},
		WithRunCount(1),
		WithPreCallback(func(context.Context) { order = append(order, "before") }),
		WithPostCallback(func(context.Context) { order = append(order, "after"); close(done) }),
	)

	require.NoError(t, r.Start())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("post hook never ran")
	}
	require.NoError(t, func() error {
		if err := r.Stop(); !errors.Is(err, ErrNotRunning) {
			return err
		}
		return nil
	}())
	assert.Equal(t, []string{"before", "run", "after"}, order)
}

func TestPanicIsContained(t *testing.T) {
	var runs atomic.Int32
	r := MustNew(time.Millisecond, func(context.Context) error {
		runs.Add(1)
		panic("kaput")
	}, WithRunCount(2))

	require.NoError(t, r.Start())
	waitFor(t, func() bool { return !r.Running() })
	assert.Equal(t, int32(2), runs.Load())
}
