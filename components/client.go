// Package components routes message-component interactions (buttons and
// select menus) to registered executors, keyed by the match half of the
// component's custom ID and scoped either globally or to a single message.
package components

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
	"github.com/xcg-dev/dgkit/customid"
	"github.com/xcg-dev/dgkit/timeouts"
)

const (
	defaultSweepEvery  = 5 * time.Second
	defaultTimeout     = 30 * time.Second
	defaultMissMessage = "This message has timed out."
	defaultWaitMessage = "Hold on, you're clicking too fast."
)

type registration struct {
	matches   []string
	messageID string
	executor  Executor
	timeout   timeouts.Timeout

	createdAt  time.Time
	lastUsedAt time.Time
	uses       int
}

// Client owns the component registrations and the background sweep loop that
// evicts expired ones. Wire HandleInteraction into session.AddHandler and
// call Open to start sweeping.
type Client struct {
	log *slog.Logger
	now func() time.Time

	mu        sync.RWMutex
	global    map[string]*registration
	byMessage map[string]*registration

	sweepEvery  time.Duration
	limiter     *userLimiter
	missMessage string
	waitMessage string

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

// WithUserCooldown rejects repeat triggers from the same user inside the
// window with an ephemeral notice.
func WithUserCooldown(window time.Duration) Option {
	return func(c *Client) { c.limiter = newUserLimiter(window) }
}

// WithMissMessage changes the ephemeral reply sent when no registration
// matches an inbound interaction.
func WithMissMessage(msg string) Option {
	return func(c *Client) { c.missMessage = msg }
}

// NewClient builds a component client. It does not sweep until Open is called.
func NewClient(opts ...Option) *Client {
	c := &Client{
		log:         slog.Default(),
		now:         time.Now,
		global:      map[string]*registration{},
		byMessage:   map[string]*registration{},
		sweepEvery:  defaultSweepEvery,
		missMessage: defaultMissMessage,
		waitMessage: defaultWaitMessage,
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

// Close stops the sweep loop and waits for it to exit. Idempotent. In-flight
// dispatches are left to finish on their own goroutines.
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

// sweep evicts every expired registration. A panic from a broken Timeout
// implementation is logged and the loop keeps going on the next interval.
func (c *Client) sweep(now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("component sweep panicked", "panic", rec)
		}
	}()

	c.mu.Lock()
	var expired []*registration
	for _, reg := range c.global {
		if reg.timeout.HasExpired(now) {
			expired = append(expired, reg)
		}
	}
	for _, reg := range c.byMessage {
		if reg.timeout.HasExpired(now) {
			expired = append(expired, reg)
		}
	}
	for _, reg := range expired {
		c.removeLocked(reg)
	}
	c.mu.Unlock()

	if len(expired) > 0 {
		c.log.Debug("evicted expired component registrations", "count", len(expired))
	}
	if c.limiter != nil {
		c.limiter.sweep(now)
	}
}

func (c *Client) removeLocked(reg *registration) {
	for _, m := range reg.matches {
		if c.global[m] == reg {
			delete(c.global, m)
		}
	}
	if reg.messageID != "" && c.byMessage[reg.messageID] == reg {
		delete(c.byMessage, reg.messageID)
	}
}

func (c *Client) remove(reg *registration) {
	c.mu.Lock()
	c.removeLocked(reg)
	c.mu.Unlock()
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	timeout timeouts.Timeout
}

// WithTimeout sets the registration's expiry policy. The default is a
// sliding 30 second timeout with unlimited uses.
func WithTimeout(t timeouts.Timeout) RegisterOption {
	return func(rc *registerConfig) { rc.timeout = t }
}

func buildConfig(opts []RegisterOption) registerConfig {
	rc := registerConfig{
		timeout: timeouts.Sliding(defaultTimeout, timeouts.WithMaxUses(timeouts.Unlimited)),
	}
	for _, opt := range opts {
		opt(&rc)
	}
	return rc
}

func validMatches(ids []string) error {
	if len(ids) == 0 {
		return dgkit.Validationf("executor declares no custom ids")
	}
	for _, id := range ids {
		if _, err := customid.Join(id, ""); err != nil {
			return err
		}
	}
	return nil
}

// RegisterGlobal registers an executor for its match keys in the global
// scope. It fails with dgkit.ErrConflict when any key is already claimed by
// an active global or message-scoped registration.
func (c *Client) RegisterGlobal(exec Executor, opts ...RegisterOption) error {
	ids := exec.CustomIDs()
	if err := validMatches(ids); err != nil {
		return err
	}
	rc := buildConfig(opts)
	now := c.now()
	reg := &registration{matches: ids, executor: exec, timeout: rc.timeout, createdAt: now, lastUsedAt: now}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, taken := c.global[id]; taken {
			return dgkit.ErrConflict
		}
		if c.messageScopeClaimsLocked(id) {
			return dgkit.ErrConflict
		}
	}
	for _, id := range ids {
		c.global[id] = reg
	}
	return nil
}

// RegisterMessage binds an executor to one message: every component
// interaction carrying that message ID routes to it, regardless of which
// global registrations share the same match keys (message scope wins).
func (c *Client) RegisterMessage(messageID string, exec Executor, opts ...RegisterOption) error {
	if err := validMatches(exec.CustomIDs()); err != nil {
		return err
	}
	rc := buildConfig(opts)
	now := c.now()
	reg := &registration{messageID: messageID, executor: exec, timeout: rc.timeout, createdAt: now, lastUsedAt: now}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.byMessage[messageID]; taken {
		return dgkit.ErrConflict
	}
	for _, id := range exec.CustomIDs() {
		if _, taken := c.global[id]; taken {
			return dgkit.ErrConflict
		}
	}
	c.byMessage[messageID] = reg
	return nil
}

func (c *Client) messageScopeClaimsLocked(match string) bool {
	for _, reg := range c.byMessage {
		for _, id := range reg.executor.CustomIDs() {
			if id == match {
				return true
			}
		}
	}
	return false
}

// DeregisterMatch removes the global registration claiming the given match
// key, along with the rest of its keys.
func (c *Client) DeregisterMatch(match string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.global[match]
	if !ok {
		return dgkit.ErrNotFound
	}
	c.removeLocked(reg)
	return nil
}

// DeregisterMessage removes the registration bound to the given message.
func (c *Client) DeregisterMessage(messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	reg, ok := c.byMessage[messageID]
	if !ok {
		return dgkit.ErrNotFound
	}
	c.removeLocked(reg)
	return nil
}

// HandleInteraction is the discordgo handler form; wire it with
// session.AddHandler.
func (c *Client) HandleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionMessageComponent {
		return
	}
	c.Dispatch(context.Background(), s, ic, NewSessionResponder(s, ic.Interaction))
}

// Dispatch resolves and runs the executor for one component interaction.
// Lookup misses and expired entries produce an ephemeral user notice, never
// an error; dgkit.ErrExecutorClosed from the executor deregisters it.
func (c *Client) Dispatch(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, r Responder) {
	data := ic.MessageComponentData()
	match, metadata, _ := customid.Split(data.CustomID)
	now := c.now()
	cctx := NewContext(s, ic, r, match, metadata)

	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("panic in component executor", "custom_id", data.CustomID, "panic", rec)
			c.notice(cctx, "Something went wrong handling that.")
		}
	}()

	if c.limiter != nil && !c.limiter.Allow(cctx.AuthorID(), now) {
		c.notice(cctx, c.waitMessage)
		return
	}

	reg := c.lookup(ic, match, now)
	if reg == nil {
		c.log.Debug("component interaction missed", "custom_id", data.CustomID)
		c.notice(cctx, c.missMessage)
		return
	}

	err := reg.executor.Execute(ctx, cctx)
	switch {
	case errors.Is(err, dgkit.ErrExecutorClosed):
		c.remove(reg)
	case errors.Is(err, dgkit.ErrNotFound):
		// El executor no conoce ese fragmento: para el usuario es lo mismo
		// que un registro vencido.
		c.notice(cctx, c.missMessage)
	case err != nil:
		c.log.Error("component executor failed", "custom_id", data.CustomID, "err", err)
		c.notice(cctx, "Something went wrong handling that.")
	default:
		c.afterUse(reg, now)
	}
}

func (c *Client) afterUse(reg *registration, now time.Time) {
	depleted := reg.timeout.IncrementUses(now)
	c.mu.Lock()
	reg.lastUsedAt = now
	reg.uses++
	if depleted {
		c.removeLocked(reg)
	}
	c.mu.Unlock()
}

// lookup resolves message scope first, then global scope. Expired entries
// are treated as misses; the sweeper reclaims them.
func (c *Client) lookup(ic *discordgo.InteractionCreate, match string, now time.Time) *registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ic.Message != nil {
		if reg, ok := c.byMessage[ic.Message.ID]; ok {
			if reg.timeout.HasExpired(now) {
				return nil
			}
			return reg
		}
	}
	if reg, ok := c.global[match]; ok && !reg.timeout.HasExpired(now) {
		return reg
	}
	return nil
}

// notice replies ephemerally without treating delivery failure as fatal.
func (c *Client) notice(cctx *Context, msg string) {
	err := cctx.CreateInitialResponse(&discordgo.InteractionResponseData{
		Content: msg,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil && !errors.Is(err, dgkit.ErrAlreadyResponded) {
		c.log.Warn("could not deliver component notice", "err", err)
	}
}
