// Package customid implements the two-part custom identifier used to route
// interactions back to their registered handlers.
//
// An identifier is "match" or "match:metadata": the match half is the lookup
// key, the metadata half is opaque caller data that round-trips through
// Discord untouched.
package customid

import (
	"strings"

	"github.com/google/uuid"

	"github.com/xcg-dev/dgkit"
)

// Separator splits the match half from the metadata half.
const Separator = ":"

// MaxLength is Discord's custom_id length cap.
const MaxLength = 100

// Split breaks an identifier on the first separator. ok reports whether a
// metadata half was present.
func Split(id string) (match, metadata string, ok bool) {
	return strings.Cut(id, Separator)
}

// Match returns only the lookup half of an identifier.
func Match(id string) string {
	match, _, _ := strings.Cut(id, Separator)
	return match
}

// Join builds an identifier from a match key and optional metadata. Metadata
// may be empty; the match half may not contain the separator and the joined
// result may not exceed MaxLength.
func Join(match, metadata string) (string, error) {
	if strings.Contains(match, Separator) {
		return "", dgkit.Validationf("custom id match %q contains %q", match, Separator)
	}
	id := match
	if metadata != "" {
		id = match + Separator + metadata
	}
	if len(id) > MaxLength {
		return "", dgkit.Validationf("custom id is %d characters long, max is %d", len(id), MaxLength)
	}
	return id, nil
}

// Random returns a process-local identifier for registrations that do not
// need to survive restarts.
func Random() string {
	return uuid.NewString()
}

// Static derives a deterministic identifier from a declaration path so that
// stateless registrations keep working across process restarts.
func Static(path ...string) string {
	return strings.Join(path, ".")
}
