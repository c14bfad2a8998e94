// Package modals routes modal-submission interactions to declarative modal
// executors registered by custom ID.
package modals

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
)

// maxFields is Discord's cap on text inputs per modal.
const maxFields = 5

// HandlerFunc receives the submitted modal. Returning dgkit.ErrExecutorClosed
// deregisters the modal.
type HandlerFunc func(ctx context.Context, mctx *Context) error

// Field describes one text input of a modal.
type Field struct {
	CustomID    string
	Label       string
	Style       discordgo.TextInputStyle
	Required    bool
	Value       string
	Placeholder string
	MinLength   int
	MaxLength   int
}

// Modal is a declarative modal executor: an ordered list of up to five typed
// input fields plus the callback that receives the submitted values.
type Modal struct {
	fields  []Field
	handler HandlerFunc
}

// New validates the field list. Field custom IDs must be unique within the
// modal and there can be at most five of them.
func New(handler HandlerFunc, fields ...Field) (*Modal, error) {
	if handler == nil {
		return nil, dgkit.Validationf("modal needs a handler")
	}
	if len(fields) == 0 || len(fields) > maxFields {
		return nil, dgkit.Validationf("modal needs between 1 and %d fields, got %d", maxFields, len(fields))
	}
	seen := map[string]struct{}{}
	for _, f := range fields {
		if f.CustomID == "" {
			return nil, dgkit.Validationf("modal field needs a custom id")
		}
		if _, dup := seen[f.CustomID]; dup {
			return nil, dgkit.Validationf("duplicated modal field id %q", f.CustomID)
		}
		seen[f.CustomID] = struct{}{}
	}
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return &Modal{fields: cp, handler: handler}, nil
}

// MustNew is New, panicking on invalid declarations. Meant for package-level
// modal templates.
func MustNew(handler HandlerFunc, fields ...Field) *Modal {
	m, err := New(handler, fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// Rows renders the declared fields as text-input rows for a modal response.
func (m *Modal) Rows() []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, len(m.fields))
	for _, f := range m.fields {
		style := f.Style
		if style == 0 {
			style = discordgo.TextInputShort
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.TextInput{
				CustomID:    f.CustomID,
				Label:       f.Label,
				Style:       style,
				Required:    f.Required,
				Value:       f.Value,
				Placeholder: f.Placeholder,
				MinLength:   f.MinLength,
				MaxLength:   f.MaxLength,
			}},
		})
	}
	return rows
}

// Fields returns a copy of the declared fields.
func (m *Modal) Fields() []Field {
	cp := make([]Field, len(m.fields))
	copy(cp, m.fields)
	return cp
}

func (m *Modal) execute(ctx context.Context, mctx *Context) error {
	return m.handler(ctx, mctx)
}
