package reactions

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
	"github.com/xcg-dev/dgkit/backoff"
	"github.com/xcg-dev/dgkit/pagination"
)

// EmojiStop is the stop trigger for reaction paginators; components use a
// cross, reactions use the stop square.
const EmojiStop = "⏹️" // ⏹️

// Paginator drives a pagination cursor from reaction events, editing the
// paginated message in place.
type Paginator struct {
	paginator *pagination.Paginator
	enabled   map[pagination.Trigger]bool
	authors   map[string]struct{}

	channelID string
	messageID string
}

// PaginatorOption configures a reaction paginator.
type PaginatorOption func(*Paginator)

// WithTriggers picks the enabled navigation reactions; default previous,
// stop, next.
func WithTriggers(triggers ...pagination.Trigger) PaginatorOption {
	return func(p *Paginator) {
		p.enabled = map[pagination.Trigger]bool{}
		for _, t := range triggers {
			p.enabled[t] = true
		}
	}
}

// WithAuthors restricts who may drive the paginator; empty means anyone.
func WithAuthors(userIDs ...string) PaginatorOption {
	return func(p *Paginator) {
		p.authors = map[string]struct{}{}
		for _, id := range userIDs {
			p.authors[id] = struct{}{}
		}
	}
}

// NewPaginator builds a reaction paginator over src.
func NewPaginator(src pagination.Source, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		paginator: pagination.New(src),
		enabled: map[pagination.Trigger]bool{
			pagination.TriggerPrevious: true,
			pagination.TriggerStop:     true,
			pagination.TriggerNext:     true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Paginator) triggerEmoji(t pagination.Trigger) string {
	if t == pagination.TriggerStop {
		return EmojiStop
	}
	switch t {
	case pagination.TriggerFirst:
		return pagination.EmojiFirst
	case pagination.TriggerPrevious:
		return pagination.EmojiPrevious
	case pagination.TriggerNext:
		return pagination.EmojiNext
	default:
		return pagination.EmojiLast
	}
}

var reactionOrder = [...]pagination.Trigger{
	pagination.TriggerFirst,
	pagination.TriggerPrevious,
	pagination.TriggerStop,
	pagination.TriggerNext,
	pagination.TriggerLast,
}

// Emojis lists the enabled trigger reactions in display order.
func (p *Paginator) Emojis() []string {
	out := make([]string, 0, len(p.enabled))
	for _, t := range reactionOrder {
		if p.enabled[t] {
			out = append(out, p.triggerEmoji(t))
		}
	}
	return out
}

// Open sends the first page to channelID and seeds the trigger reactions,
// retrying each add with backoff since reaction adds are heavily
// rate-limited. Register the paginator against the returned message ID.
func (p *Paginator) Open(ctx context.Context, s *discordgo.Session, channelID string) (*discordgo.Message, error) {
	page, _, err := p.paginator.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("pulling first page: %w", err)
	}

	msg, err := s.ChannelMessageSendComplex(channelID, page.MessageSend(nil))
	if err != nil {
		return nil, err
	}
	p.channelID = channelID
	p.messageID = msg.ID

	for _, emoji := range p.Emojis() {
		retry := backoff.New()
		for retry.Next(ctx) {
			if err := s.MessageReactionAdd(channelID, msg.ID, emoji); err == nil {
				break
			}
		}
	}
	return msg, nil
}

// Execute answers one reaction event; part of the Handler interface.
func (p *Paginator) Execute(ctx context.Context, ev *Event) error {
	if len(p.authors) > 0 {
		if _, ok := p.authors[ev.UserID]; !ok {
			return nil
		}
	}

	trigger, ok := p.match(ev.Emoji.APIName())
	if !ok {
		return nil
	}

	var (
		page  pagination.Page
		moved bool
		err   error
	)
	switch trigger {
	case pagination.TriggerFirst:
		page, moved = p.paginator.First()
	case pagination.TriggerPrevious:
		page, moved = p.paginator.Previous()
	case pagination.TriggerNext:
		page, moved, err = p.paginator.Next(ctx)
	case pagination.TriggerLast:
		page, moved, err = p.paginator.Last(ctx)
	case pagination.TriggerStop:
		if derr := ev.Session.ChannelMessageDelete(ev.ChannelID, ev.MessageID); derr != nil {
			return derr
		}
		return dgkit.ErrExecutorClosed
	}
	if err != nil {
		return err
	}
	if !moved {
		// Borde del buffer: dejamos el mensaje como está.
		return nil
	}

	_, err = ev.Session.ChannelMessageEditComplex(page.MessageEdit(ev.ChannelID, ev.MessageID))
	return err
}

func (p *Paginator) match(emojiName string) (pagination.Trigger, bool) {
	name := normalizeEmoji(emojiName)
	for _, t := range reactionOrder {
		if p.enabled[t] && normalizeEmoji(p.triggerEmoji(t)) == name {
			return t, true
		}
	}
	return 0, false
}

var _ Handler = (*Paginator)(nil)
