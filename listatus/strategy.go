// Package listatus keeps third-party bot-list services fed with the bot's
// guild count on a fixed cadence.
package listatus

import (
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrCountUnknown is returned while a strategy has not seen enough gateway
// traffic to know the guild count.
var ErrCountUnknown = errors.New("listatus: guild count not known yet")

// CountStrategy computes the bot's current guild count.
type CountStrategy interface {
	Open(s *discordgo.Session)
	Close()
	Count() (int, error)
}

// CacheStrategy reads the count straight from the session state cache. It
// needs the guilds intent and state tracking enabled.
type CacheStrategy struct {
	mu sync.Mutex
	s  *discordgo.Session
}

// NewCacheStrategy builds a cache-backed strategy.
func NewCacheStrategy() *CacheStrategy {
	return &CacheStrategy{}
}

func (c *CacheStrategy) Open(s *discordgo.Session) {
	c.mu.Lock()
	c.s = s
	c.mu.Unlock()
}

func (c *CacheStrategy) Close() {
	c.mu.Lock()
	c.s = nil
	c.mu.Unlock()
}

func (c *CacheStrategy) Count() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s == nil || c.s.State == nil {
		return 0, ErrCountUnknown
	}
	c.s.State.RLock()
	defer c.s.State.RUnlock()
	return len(c.s.State.Guilds), nil
}

// EventStrategy tracks guild membership from gateway events, independent of
// the state cache.
type EventStrategy struct {
	mu     sync.Mutex
	guilds map[string]struct{}
	ready  bool
	remove []func()
}

// NewEventStrategy builds an event-backed strategy.
func NewEventStrategy() *EventStrategy {
	return &EventStrategy{guilds: map[string]struct{}{}}
}

func (e *EventStrategy) Open(s *discordgo.Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remove = append(e.remove,
		s.AddHandler(e.onReady),
		s.AddHandler(e.onGuildCreate),
		s.AddHandler(e.onGuildDelete),
	)
}

func (e *EventStrategy) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, rm := range e.remove {
		rm()
	}
	e.remove = nil
	e.guilds = map[string]struct{}{}
	e.ready = false
}

func (e *EventStrategy) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, g := range r.Guilds {
		e.guilds[g.ID] = struct{}{}
	}
	e.ready = true
}

func (e *EventStrategy) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	e.mu.Lock()
	e.guilds[g.ID] = struct{}{}
	e.mu.Unlock()
}

func (e *EventStrategy) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	// Un guild "unavailable" sigue contando: solo está caído el shard.
	if g.Unavailable {
		return
	}
	e.mu.Lock()
	delete(e.guilds, g.ID)
	e.mu.Unlock()
}

func (e *EventStrategy) Count() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return 0, ErrCountUnknown
	}
	return len(e.guilds), nil
}
