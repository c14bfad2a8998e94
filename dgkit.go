// Package dgkit is a convenience toolbox layered on top of discordgo:
// custom-ID based routing for message components and modals, lazy pagination,
// reaction handlers, an interaction webhook server and bot-list reporting.
//
// The subpackages are independent; most bots only pull in the ones they need:
//
//   - customid: the two-part "match:metadata" identifier codec
//   - timeouts: expiry policies for registered handlers
//   - components: routing for buttons and select menus
//   - modals: routing for modal submissions
//   - pagination: lazy page sources and navigation state
//   - reactions: reaction-driven handlers and pagination
//   - interactionserver: HTTP / Lambda interaction webhook adapters
//   - backoff: retry helper for flaky REST calls
//   - listatus: guild-count reporting to bot-list services
//   - links: Discord link-string parsing
//   - repeaters: periodic callback runner
//   - chunktracker: request-guild-members chunk tracking
package dgkit

import (
	"errors"
	"fmt"
)

// Errores compartidos por los registries y contextos de todo el kit.
var (
	// ErrConflict is returned when registering a custom ID that an active
	// registration in the same scope already claims.
	ErrConflict = errors.New("dgkit: custom id already registered")

	// ErrNotFound is returned by explicit deregister calls for absent entries.
	ErrNotFound = errors.New("dgkit: registration not found")

	// ErrExecutorClosed is returned by an executor callback to request its own
	// deregistration. The dispatcher swallows it; it never reaches the user.
	ErrExecutorClosed = errors.New("dgkit: executor closed")

	// ErrAlreadyResponded is returned when a second initial response is
	// attempted for the same interaction.
	ErrAlreadyResponded = errors.New("dgkit: initial response already created")

	// ErrNotResponded is returned when editing or deleting an initial
	// response that was never created nor deferred.
	ErrNotResponded = errors.New("dgkit: interaction has not been responded to")

	// ErrUnsupportedOperation is returned for operations the receiver cannot
	// honor, e.g. jump-to-last on an unbounded page source.
	ErrUnsupportedOperation = errors.New("dgkit: unsupported operation")
)

// ValidationError reports malformed caller input (oversized identifiers,
// separator misuse, descriptor limits).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "dgkit: " + e.Reason
}

// Validationf builds a *ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
