// Package reactions routes message-reaction events to handlers registered
// per message, with the same expiry semantics as component registrations.
package reactions

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
	"github.com/xcg-dev/dgkit/timeouts"
)

const (
	defaultSweepEvery = 5 * time.Second
	defaultTimeout    = 30 * time.Second
)

// Event is one reaction add or remove on a registered message.
type Event struct {
	Session   *discordgo.Session
	Emoji     discordgo.Emoji
	UserID    string
	ChannelID string
	MessageID string
	GuildID   string
	Added     bool
}

// CallbackFunc handles one reaction event. Returning dgkit.ErrExecutorClosed
// deregisters the message's handler.
type CallbackFunc func(ctx context.Context, ev *Event) error

// Handler answers the reactions of one registered message.
type Handler interface {
	// Emojis lists the emoji names the handler wants; used to seed the
	// message's reactions when a helper opens it.
	Emojis() []string
	Execute(ctx context.Context, ev *Event) error
}

// CallbackHandler routes each emoji to its own callback.
type CallbackHandler struct {
	order     []string
	callbacks map[string]CallbackFunc
}

// NewCallbackHandler returns an empty handler; chain SetCallback to fill it.
func NewCallbackHandler() *CallbackHandler {
	return &CallbackHandler{callbacks: map[string]CallbackFunc{}}
}

// SetCallback binds an emoji name to a callback.
func (h *CallbackHandler) SetCallback(emoji string, cb CallbackFunc) *CallbackHandler {
	key := normalizeEmoji(emoji)
	if _, ok := h.callbacks[key]; !ok {
		h.order = append(h.order, emoji)
	}
	h.callbacks[key] = cb
	return h
}

// Emojis lists the bound emoji names in declaration order.
func (h *CallbackHandler) Emojis() []string {
	cp := make([]string, len(h.order))
	copy(cp, h.order)
	return cp
}

// Execute runs the callback bound to the event's emoji, ignoring others.
func (h *CallbackHandler) Execute(ctx context.Context, ev *Event) error {
	cb, ok := h.callbacks[normalizeEmoji(ev.Emoji.APIName())]
	if !ok {
		return nil
	}
	return cb(ctx, ev)
}

// normalizeEmoji strips the variation selector so "▶" and "▶️" compare equal;
// Discord is not consistent about echoing it back.
func normalizeEmoji(name string) string {
	return strings.TrimSuffix(name, "️")
}

type registration struct {
	messageID string
	handler   Handler
	timeout   timeouts.Timeout

	lastUsedAt time.Time
	uses       int
}

// Client owns the reaction registrations and their expiry sweep.
type Client struct {
	log *slog.Logger
	now func() time.Time

	mu        sync.RWMutex
	byMessage map[string]*registration

	sweepEvery time.Duration

	lifeMu sync.Mutex
	done   chan struct{}
	wg     sync.WaitGroup
	opened bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSweepInterval changes how often expired registrations are evicted.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Client) { c.sweepEvery = d }
}

// NewClient builds a reaction client. It does not sweep until Open is called.
func NewClient(opts ...Option) *Client {
	c := &Client{
		log:        slog.Default(),
		now:        time.Now,
		byMessage:  map[string]*registration{},
		sweepEvery: defaultSweepEvery,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts the background sweep loop. Idempotent.
func (c *Client) Open() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.opened {
		return
	}
	c.opened = true
	c.done = make(chan struct{})
	c.wg.Add(1)
	go c.sweepLoop(c.done)
}

// Close stops the sweep loop and waits for it. Idempotent.
func (c *Client) Close() {
	c.lifeMu.Lock()
	if !c.opened {
		c.lifeMu.Unlock()
		return
	}
	c.opened = false
	close(c.done)
	c.lifeMu.Unlock()
	c.wg.Wait()
}

func (c *Client) sweepLoop(done <-chan struct{}) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.sweep(c.now())
		}
	}
}

func (c *Client) sweep(now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("reaction sweep panicked", "panic", rec)
		}
	}()

	c.mu.Lock()
	for id, reg := range c.byMessage {
		if reg.timeout.HasExpired(now) {
			delete(c.byMessage, id)
		}
	}
	c.mu.Unlock()
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	timeout timeouts.Timeout
}

// WithTimeout sets the registration's expiry policy.
func WithTimeout(t timeouts.Timeout) RegisterOption {
	return func(rc *registerConfig) { rc.timeout = t }
}

// Register binds a handler to a message's reactions.
func (c *Client) Register(messageID string, h Handler, opts ...RegisterOption) error {
	rc := registerConfig{
		timeout: timeouts.Sliding(defaultTimeout, timeouts.WithMaxUses(timeouts.Unlimited)),
	}
	for _, opt := range opts {
		opt(&rc)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.byMessage[messageID]; taken {
		return dgkit.ErrConflict
	}
	c.byMessage[messageID] = &registration{
		messageID:  messageID,
		handler:    h,
		timeout:    rc.timeout,
		lastUsedAt: c.now(),
	}
	return nil
}

// Deregister removes a message's handler.
func (c *Client) Deregister(messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byMessage[messageID]; !ok {
		return dgkit.ErrNotFound
	}
	delete(c.byMessage, messageID)
	return nil
}

// HandleReactionAdd is the discordgo handler form for reaction adds.
func (c *Client) HandleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	// Ignoramos las reacciones del propio bot al sembrar los controles.
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	c.dispatch(context.Background(), &Event{
		Session:   s,
		Emoji:     r.Emoji,
		UserID:    r.UserID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		GuildID:   r.GuildID,
		Added:     true,
	})
}

// HandleReactionRemove is the discordgo handler form for reaction removals.
func (c *Client) HandleReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	c.dispatch(context.Background(), &Event{
		Session:   s,
		Emoji:     r.Emoji,
		UserID:    r.UserID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		GuildID:   r.GuildID,
	})
}

func (c *Client) dispatch(ctx context.Context, ev *Event) {
	now := c.now()

	c.mu.RLock()
	reg, ok := c.byMessage[ev.MessageID]
	if ok && reg.timeout.HasExpired(now) {
		reg, ok = nil, false
	}
	c.mu.RUnlock()
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("panic in reaction handler", "message_id", ev.MessageID, "panic", rec)
		}
	}()

	err := reg.handler.Execute(ctx, ev)
	switch {
	case errors.Is(err, dgkit.ErrExecutorClosed):
		c.mu.Lock()
		if c.byMessage[reg.messageID] == reg {
			delete(c.byMessage, reg.messageID)
		}
		c.mu.Unlock()
	case err != nil:
		c.log.Error("reaction handler failed", "message_id", ev.MessageID, "err", err)
	default:
		depleted := reg.timeout.IncrementUses(now)
		c.mu.Lock()
		reg.lastUsedAt = now
		reg.uses++
		if depleted && c.byMessage[reg.messageID] == reg {
			delete(c.byMessage, reg.messageID)
		}
		c.mu.Unlock()
	}
}
