// Package chunktracker follows request-guild-members traffic: it tags each
// request with a nonce, matches the guild-members-chunk events back to it,
// and reports when a request completed, which chunks went missing, and which
// requested user IDs Discord did not find.
package chunktracker

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	// defaultTimeout is how long a request may go without a chunk before it
	// is reported as timed out.
	defaultTimeout = 5 * time.Second

	defaultSweepEvery = time.Second
)

// Result describes one finished or timed-out chunk request.
type Result struct {
	Nonce   string
	GuildID string

	// ChunkCount is how many chunk events Discord announced; zero when the
	// request timed out before any chunk arrived.
	ChunkCount int

	// MissedChunks lists the chunk indexes that never arrived, ascending.
	// Empty for a completed request.
	MissedChunks []int

	// NotFoundIDs lists requested user IDs Discord did not find.
	NotFoundIDs []string

	FirstReceivedAt time.Time
	LastReceivedAt  time.Time
	TimedOut        bool
}

// CallbackFunc receives one finished request report.
type CallbackFunc func(ctx context.Context, res *Result)

type request struct {
	nonce   string
	guildID string

	chunkCount int
	missing    map[int]struct{}
	notFound   []string

	requestedAt time.Time
	firstAt     time.Time
	lastAt      time.Time
}

// Tracker owns the in-flight chunk requests and the sweep loop that reports
// stale ones. Wire HandleMembersChunk into session.AddHandler and call Open
// to start sweeping.
type Tracker struct {
	log *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	requests map[string]*request

	onFinished CallbackFunc
	timeout    time.Duration
	sweepEvery time.Duration

	lifeMu sync.Mutex
	done   chan struct{}
	wg     sync.WaitGroup
	opened bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithTimeout changes how long a request may stay silent before it is
// reported as timed out, default 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.timeout = d }
}

// WithSweepInterval changes how often stale requests are checked for.
func WithSweepInterval(d time.Duration) Option {
	return func(t *Tracker) { t.sweepEvery = d }
}

// NewTracker builds a tracker reporting through onFinished. It does not
// sweep until Open is called.
func NewTracker(onFinished CallbackFunc, opts ...Option) *Tracker {
	t := &Tracker{
		log:        slog.Default(),
		now:        time.Now,
		requests:   map[string]*request{},
		onFinished: onFinished,
		timeout:    defaultTimeout,
		sweepEvery: defaultSweepEvery,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open starts the background sweep loop. Idempotent.
func (t *Tracker) Open() {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()
	if t.opened {
		return
	}
	t.opened = true
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.sweepLoop(t.done)
}

// Close stops the sweep loop and waits for it. Pending requests are dropped
// without a report. Idempotent.
func (t *Tracker) Close() {
	t.lifeMu.Lock()
	if !t.opened {
		t.lifeMu.Unlock()
		return
	}
	t.opened = false
	close(t.done)
	t.lifeMu.Unlock()
	t.wg.Wait()

	t.mu.Lock()
	t.requests = map[string]*request{}
	t.mu.Unlock()
}

func (t *Tracker) sweepLoop(done <-chan struct{}) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.sweep(t.now())
		}
	}
}

// sweep reports every request whose last activity is older than the
// timeout.
func (t *Tracker) sweep(now time.Time) {
	var stale []*request
	t.mu.Lock()
	for nonce, req := range t.requests {
		last := req.lastAt
		if last.IsZero() {
			last = req.requestedAt
		}
		if now.Sub(last) > t.timeout {
			delete(t.requests, nonce)
			stale = append(stale, req)
		}
	}
	t.mu.Unlock()

	for _, req := range stale {
		t.log.Debug("chunk request timed out", "nonce", req.nonce, "guild_id", req.guildID)
		t.dispatch(req.result(true))
	}
}

// RequestGuildMembers sends a tagged request-guild-members payload over the
// gateway and tracks its nonce. Leave query empty and limit zero to request
// every member; this needs the guild-members intent.
func (t *Tracker) RequestGuildMembers(s *discordgo.Session, guildID, query string, limit int, presences bool) (string, error) {
	nonce := randomNonce()
	t.Track(nonce, guildID)
	if err := s.RequestGuildMembers(guildID, query, limit, nonce, presences); err != nil {
		t.mu.Lock()
		delete(t.requests, nonce)
		t.mu.Unlock()
		return "", err
	}
	return nonce, nil
}

// Track registers a nonce issued elsewhere, e.g. a request sent straight
// through the session, so its chunks and timeout are still reported.
func (t *Tracker) Track(nonce, guildID string) {
	now := t.now()
	t.mu.Lock()
	if _, exists := t.requests[nonce]; !exists {
		t.requests[nonce] = &request{nonce: nonce, guildID: guildID, requestedAt: now}
	}
	t.mu.Unlock()
}

// Pending returns how many requests are still awaiting chunks.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// HandleMembersChunk is the discordgo handler form; wire it with
// session.AddHandler. Chunks without a nonce belong to untagged requests
// and are ignored; unknown nonces are adopted so externally tagged
// requests still get a completion report.
func (t *Tracker) HandleMembersChunk(s *discordgo.Session, ev *discordgo.GuildMembersChunk) {
	if ev.Nonce == "" {
		return
	}
	now := t.now()

	t.mu.Lock()
	req, ok := t.requests[ev.Nonce]
	if !ok {
		req = &request{nonce: ev.Nonce, guildID: ev.GuildID, requestedAt: now}
		t.requests[ev.Nonce] = req
	}
	if req.missing == nil {
		// Primer chunk: recién ahora sabemos cuántos esperar.
		req.chunkCount = ev.ChunkCount
		req.firstAt = now
		req.missing = make(map[int]struct{}, ev.ChunkCount)
		for i := 0; i < ev.ChunkCount; i++ {
			req.missing[i] = struct{}{}
		}
	}
	delete(req.missing, ev.ChunkIndex)
	req.lastAt = now
	req.notFound = append(req.notFound, ev.NotFound...)

	finished := len(req.missing) == 0
	if finished {
		delete(t.requests, ev.Nonce)
	}
	t.mu.Unlock()

	if finished {
		t.dispatch(req.result(false))
	}
}

func (req *request) result(timedOut bool) *Result {
	missed := make([]int, 0, len(req.missing))
	for i := range req.missing {
		missed = append(missed, i)
	}
	sort.Ints(missed)
	return &Result{
		Nonce:           req.nonce,
		GuildID:         req.guildID,
		ChunkCount:      req.chunkCount,
		MissedChunks:    missed,
		NotFoundIDs:     req.notFound,
		FirstReceivedAt: req.firstAt,
		LastReceivedAt:  req.lastAt,
		TimedOut:        timedOut,
	}
}

func (t *Tracker) dispatch(res *Result) {
	if t.onFinished == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			t.log.Error("panic in chunk callback", "nonce", res.Nonce, "panic", rec)
		}
	}()
	t.onFinished(context.Background(), res)
}

// randomNonce emite 22 caracteres; Discord corta los nonces en 32.
func randomNonce() string {
	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	return base64.RawURLEncoding.EncodeToString(raw)
}
