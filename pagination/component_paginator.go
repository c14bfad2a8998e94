package pagination

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
	"github.com/xcg-dev/dgkit/components"
)

// Navigation emojis, matching the usual paginator conventions.
const (
	EmojiFirst    = "⏮️" // ⏮️
	EmojiPrevious = "◀️" // ◀️
	EmojiStop     = "✖️" // ✖️
	EmojiNext     = "▶️" // ▶️
	EmojiLast     = "⏭️" // ⏭️
)

// Trigger names one navigation control of a paginator.
type Trigger int

const (
	TriggerFirst Trigger = iota
	TriggerPrevious
	TriggerStop
	TriggerNext
	TriggerLast
)

// triggerOrder is the rendering order; the configured subset keeps it.
var triggerOrder = [...]Trigger{TriggerFirst, TriggerPrevious, TriggerStop, TriggerNext, TriggerLast}

func (t Trigger) fragment() string {
	switch t {
	case TriggerFirst:
		return "first"
	case TriggerPrevious:
		return "prev"
	case TriggerStop:
		return "stop"
	case TriggerNext:
		return "next"
	default:
		return "last"
	}
}

func (t Trigger) emoji() string {
	switch t {
	case TriggerFirst:
		return EmojiFirst
	case TriggerPrevious:
		return EmojiPrevious
	case TriggerStop:
		return EmojiStop
	case TriggerNext:
		return EmojiNext
	default:
		return EmojiLast
	}
}

// ComponentPaginator drives a Paginator from button presses. It is a
// components.Executor; register it message-scoped against the message that
// carries its controls.
type ComponentPaginator struct {
	paginator *Paginator
	enabled   map[Trigger]bool
	idPrefix  string
}

// ComponentOption configures a ComponentPaginator.
type ComponentOption func(*ComponentPaginator)

// WithTriggers picks which navigation controls are rendered and answered.
// The default set is previous, stop, next.
func WithTriggers(triggers ...Trigger) ComponentOption {
	return func(p *ComponentPaginator) {
		p.enabled = map[Trigger]bool{}
		for _, t := range triggers {
			p.enabled[t] = true
		}
	}
}

// WithIDPrefix changes the deterministic custom-ID prefix, "pgn" by default.
// Only needed when two globally registered paginators must not collide.
func WithIDPrefix(prefix string) ComponentOption {
	return func(p *ComponentPaginator) { p.idPrefix = prefix }
}

// NewComponentPaginator builds a paginator executor over src.
func NewComponentPaginator(src Source, opts ...ComponentOption) *ComponentPaginator {
	p := &ComponentPaginator{
		paginator: New(src),
		enabled:   map[Trigger]bool{TriggerPrevious: true, TriggerStop: true, TriggerNext: true},
		idPrefix:  "pgn",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Paginator exposes the underlying cursor, mostly for tests and direct moves.
func (p *ComponentPaginator) Paginator() *Paginator { return p.paginator }

func (p *ComponentPaginator) triggerID(t Trigger) string {
	return p.idPrefix + "." + t.fragment()
}

// CustomIDs lists the match keys of the enabled navigation controls.
func (p *ComponentPaginator) CustomIDs() []string {
	ids := make([]string, 0, len(p.enabled))
	for _, t := range triggerOrder {
		if p.enabled[t] {
			ids = append(ids, p.triggerID(t))
		}
	}
	return ids
}

// Rows renders the enabled navigation buttons.
func (p *ComponentPaginator) Rows() []discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for _, t := range triggerOrder {
		if !p.enabled[t] {
			continue
		}
		row.Components = append(row.Components, discordgo.Button{
			CustomID: p.triggerID(t),
			Style:    discordgo.SecondaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: t.emoji()},
		})
	}
	return []discordgo.MessageComponent{row}
}

// FirstPage pulls the opening page. Use it to build the message the
// controls are attached to.
func (p *ComponentPaginator) FirstPage(ctx context.Context) (Page, error) {
	page, _, err := p.paginator.Next(ctx)
	return page, err
}

// OpenMessage sends the first page with its controls to a channel. The
// caller still registers the executor against the returned message ID.
func (p *ComponentPaginator) OpenMessage(ctx context.Context, s *discordgo.Session, channelID string) (*discordgo.Message, error) {
	page, err := p.FirstPage(ctx)
	if err != nil {
		return nil, err
	}
	return s.ChannelMessageSendComplex(channelID, page.MessageSend(p.Rows()))
}

// Execute answers one navigation press. Boundary presses whose page did not
// change are acknowledged with a deferred update instead of re-sending
// content; the stop control deletes the message and closes the executor.
func (p *ComponentPaginator) Execute(ctx context.Context, cctx *components.Context) error {
	var (
		page  Page
		moved bool
		err   error
	)

	switch cctx.IDMatch() {
	case p.triggerID(TriggerFirst):
		page, moved = p.paginator.First()
	case p.triggerID(TriggerPrevious):
		page, moved = p.paginator.Previous()
	case p.triggerID(TriggerNext):
		page, moved, err = p.paginator.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			// Fuente vacía: no hay nada que mostrar, solo reconocemos.
			return cctx.DeferUpdate()
		}
	case p.triggerID(TriggerLast):
		page, moved, err = p.paginator.Last(ctx)
	case p.triggerID(TriggerStop):
		if err := cctx.DeferUpdate(); err != nil {
			return err
		}
		if err := cctx.DeleteInitialResponse(); err != nil {
			return err
		}
		return dgkit.ErrExecutorClosed
	default:
		return dgkit.ErrNotFound
	}
	if err != nil {
		return err
	}

	if !moved {
		return cctx.DeferUpdate()
	}
	return cctx.UpdateMessage(page.ResponseData(p.Rows()))
}

var _ components.Executor = (*ComponentPaginator)(nil)
