package components

import (
	"context"

	"github.com/xcg-dev/dgkit"
)

// CallbackFunc handles one component interaction. Returning
// dgkit.ErrExecutorClosed deregisters the whole registration.
type CallbackFunc func(ctx context.Context, cctx *Context) error

// Executor is the unit a registration points at. CustomIDs lists the match
// keys the executor answers to; Execute handles a single dispatch.
type Executor interface {
	CustomIDs() []string
	Execute(ctx context.Context, cctx *Context) error
}

// CallbackExecutor routes each of its match keys to its own callback.
type CallbackExecutor struct {
	order     []string
	callbacks map[string]CallbackFunc
}

// NewCallbackExecutor returns an empty executor; chain SetCallback to fill it.
func NewCallbackExecutor() *CallbackExecutor {
	return &CallbackExecutor{callbacks: map[string]CallbackFunc{}}
}

// SetCallback binds a match key to a callback, replacing any previous binding.
func (e *CallbackExecutor) SetCallback(matchID string, cb CallbackFunc) *CallbackExecutor {
	if _, ok := e.callbacks[matchID]; !ok {
		e.order = append(e.order, matchID)
	}
	e.callbacks[matchID] = cb
	return e
}

// CustomIDs lists the bound match keys in declaration order.
func (e *CallbackExecutor) CustomIDs() []string {
	ids := make([]string, len(e.order))
	copy(ids, e.order)
	return ids
}

// Execute runs the callback bound to the dispatched custom ID.
func (e *CallbackExecutor) Execute(ctx context.Context, cctx *Context) error {
	cb, ok := e.callbacks[cctx.IDMatch()]
	if !ok {
		return dgkit.ErrNotFound
	}
	return cb(ctx, cctx)
}
