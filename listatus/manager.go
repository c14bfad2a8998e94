package listatus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit/backoff"
)

const defaultInterval = 30 * time.Minute

// Manager reports the guild count to every configured service on a fixed
// cadence. Report failures are logged and retried with backoff; they never
// stop the loop.
type Manager struct {
	log      *slog.Logger
	session  *discordgo.Session
	strategy CountStrategy
	services []Service
	interval time.Duration

	lifeMu sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	opened bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithInterval changes the reporting cadence, default 30 minutes.
func WithInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// WithStrategy replaces the default event-counting strategy.
func WithStrategy(s CountStrategy) ManagerOption {
	return func(m *Manager) { m.strategy = s }
}

// NewManager builds a manager reporting through the given services.
func NewManager(s *discordgo.Session, services []Service, opts ...ManagerOption) *Manager {
	m := &Manager{
		log:      slog.Default(),
		session:  s,
		strategy: NewEventStrategy(),
		services: services,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts the strategy and the reporting loop. Idempotent.
func (m *Manager) Open() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.opened {
		return
	}
	m.opened = true
	m.strategy.Open(m.session)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.loop(ctx)
}

// Close stops the loop and the strategy, waiting for both. Idempotent.
func (m *Manager) Close() {
	m.lifeMu.Lock()
	if !m.opened {
		m.lifeMu.Unlock()
		return
	}
	m.opened = false
	m.cancel()
	m.lifeMu.Unlock()
	m.wg.Wait()
	m.strategy.Close()
}

func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reportAll(ctx)
		}
	}
}

func (m *Manager) reportAll(ctx context.Context) {
	guilds, err := m.strategy.Count()
	if err != nil {
		m.log.Warn("skipping bot-list report", "err", err)
		return
	}
	botID := m.botID()
	if botID == "" {
		m.log.Warn("skipping bot-list report: session has no user yet")
		return
	}

	for _, svc := range m.services {
		retry := backoff.New(backoff.WithMaxRetries(3))
		var last error
		for retry.Next(ctx) {
			if last = svc.Report(ctx, botID, guilds); last == nil {
				break
			}
		}
		if last != nil {
			m.log.Error("bot-list report failed", "service", svc.Name(), "err", last)
		} else {
			m.log.Debug("bot-list report sent", "service", svc.Name(), "guilds", guilds)
		}
	}
}

func (m *Manager) botID() string {
	if m.session.State != nil && m.session.State.User != nil {
		return m.session.State.User.ID
	}
	return ""
}
