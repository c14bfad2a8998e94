package modals

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
	"github.com/xcg-dev/dgkit/components"
	"github.com/xcg-dev/dgkit/customid"
	"github.com/xcg-dev/dgkit/timeouts"
)

const (
	defaultSweepEvery  = 5 * time.Second
	defaultTimeout     = 30 * time.Second
	defaultMissMessage = "This modal has timed out."
)

type registration struct {
	match   string
	modal   *Modal
	timeout timeouts.Timeout

	createdAt  time.Time
	lastUsedAt time.Time
	uses       int
}

// Client owns the modal registrations and their expiry sweep. Modal
// interactions carry no message binding, so scope is always global.
type Client struct {
	log *slog.Logger
	now func() time.Time

	mu      sync.RWMutex
	byMatch map[string]*registration

	sweepEvery  time.Duration
	missMessage string

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

// WithMissMessage changes the ephemeral reply for unmatched submissions.
func WithMissMessage(msg string) Option {
	return func(c *Client) { c.missMessage = msg }
}

// NewClient builds a modal client. It does not sweep until Open is called.
func NewClient(opts ...Option) *Client {
	c := &Client{
		log:         slog.Default(),
		now:         time.Now,
		byMatch:     map[string]*registration{},
		sweepEvery:  defaultSweepEvery,
		missMessage: defaultMissMessage,
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
			c.log.Error("modal sweep panicked", "panic", rec)
		}
	}()

	c.mu.Lock()
	for match, reg := range c.byMatch {
		if reg.timeout.HasExpired(now) {
			delete(c.byMatch, match)
		}
	}
	c.mu.Unlock()
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	timeout timeouts.Timeout
}

// WithTimeout sets the registration's expiry policy. Statically declared
// modals usually want timeouts.Never with a customid.Static match key.
func WithTimeout(t timeouts.Timeout) RegisterOption {
	return func(rc *registerConfig) { rc.timeout = t }
}

// Register binds a modal to the match half of the custom IDs it will be
// opened with. Fails with dgkit.ErrConflict when the key is taken.
func (c *Client) Register(matchID string, modal *Modal, opts ...RegisterOption) error {
	if _, err := customid.Join(matchID, ""); err != nil {
		return err
	}
	rc := registerConfig{
		timeout: timeouts.Sliding(defaultTimeout, timeouts.WithMaxUses(timeouts.Unlimited)),
	}
	for _, opt := range opts {
		opt(&rc)
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.byMatch[matchID]; taken {
		return dgkit.ErrConflict
	}
	c.byMatch[matchID] = &registration{
		match:      matchID,
		modal:      modal,
		timeout:    rc.timeout,
		createdAt:  now,
		lastUsedAt: now,
	}
	return nil
}

// Deregister removes the registration for a match key.
func (c *Client) Deregister(matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byMatch[matchID]; !ok {
		return dgkit.ErrNotFound
	}
	delete(c.byMatch, matchID)
	return nil
}

// HandleInteraction is the discordgo handler form; wire it with
// session.AddHandler.
func (c *Client) HandleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionModalSubmit {
		return
	}
	c.Dispatch(context.Background(), s, ic, components.NewSessionResponder(s, ic.Interaction))
}

// Dispatch resolves and runs the modal for one submission event.
func (c *Client) Dispatch(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, r components.Responder) {
	data := ic.ModalSubmitData()
	match, metadata, _ := customid.Split(data.CustomID)
	now := c.now()
	mctx := NewContext(s, ic, r, match, metadata)

	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("panic in modal handler", "custom_id", data.CustomID, "panic", rec)
			c.notice(mctx, "Something went wrong handling that.")
		}
	}()

	c.mu.RLock()
	reg, ok := c.byMatch[match]
	if ok && reg.timeout.HasExpired(now) {
		reg, ok = nil, false
	}
	c.mu.RUnlock()
	if !ok {
		c.log.Debug("modal submission missed", "custom_id", data.CustomID)
		c.notice(mctx, c.missMessage)
		return
	}

	err := reg.modal.execute(ctx, mctx)
	switch {
	case errors.Is(err, dgkit.ErrExecutorClosed):
		c.mu.Lock()
		if c.byMatch[reg.match] == reg {
			delete(c.byMatch, reg.match)
		}
		c.mu.Unlock()
	case err != nil:
		c.log.Error("modal handler failed", "custom_id", data.CustomID, "err", err)
		c.notice(mctx, "Something went wrong handling that.")
	default:
		depleted := reg.timeout.IncrementUses(now)
		c.mu.Lock()
		reg.lastUsedAt = now
		reg.uses++
		if depleted && c.byMatch[reg.match] == reg {
			delete(c.byMatch, reg.match)
		}
		c.mu.Unlock()
	}
}

func (c *Client) notice(mctx *Context, msg string) {
	err := mctx.CreateInitialResponse(&discordgo.InteractionResponseData{
		Content: msg,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil && !errors.Is(err, dgkit.ErrAlreadyResponded) {
		c.log.Warn("could not deliver modal notice", "err", err)
	}
}
