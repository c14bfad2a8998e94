package listatus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStrategyCountsFromGatewayEvents(t *testing.T) {
	e := NewEventStrategy()

	_, err := e.Count()
	assert.ErrorIs(t, err, ErrCountUnknown)

	e.onReady(nil, &discordgo.Ready{Guilds: []*discordgo.Guild{{ID: "g1"}, {ID: "g2"}}})
	n, err := e.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g3"}})
	// Re-delivered guilds do not double count.
	e.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1"}})
	n, _ = e.Count()
	assert.Equal(t, 3, n)

	e.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g2"}})
	n, _ = e.Count()
	assert.Equal(t, 2, n)
}

func TestEventStrategyKeepsUnavailableGuilds(t *testing.T) {
	e := NewEventStrategy()
	e.onReady(nil, &discordgo.Ready{Guilds: []*discordgo.Guild{{ID: "g1"}}})

	e.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1", Unavailable: true}})
	n, err := e.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheStrategyNeedsASession(t *testing.T) {
	c := NewCacheStrategy()
	_, err := c.Count()
	assert.ErrorIs(t, err, ErrCountUnknown)

	st := discordgo.NewState()
	require.NoError(t, st.GuildAdd(&discordgo.Guild{ID: "g1"}))
	require.NoError(t, st.GuildAdd(&discordgo.Guild{ID: "g2"}))
	c.Open(&discordgo.Session{State: st})

	n, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	c.Close()
	_, err = c.Count()
	assert.ErrorIs(t, err, ErrCountUnknown)
}

func TestHTTPServicePostsThePayload(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]int
		gotPath string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	svc := &httpService{
		name:     "test-list",
		endpoint: func(botID string) string { return srv.URL + "/bots/" + botID + "/stats" },
		payload:  func(guilds int) any { return map[string]int{"server_count": guilds} },
		token:    "secret",
		client:   srv.Client(),
	}

	require.NoError(t, svc.Report(context.Background(), "bot-1", 42))
	assert.Equal(t, "secret", gotAuth)
	assert.Equal(t, "/bots/bot-1/stats", gotPath)
	assert.Equal(t, map[string]int{"server_count": 42}, gotBody)
}

func TestHTTPServiceRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := &httpService{
		name:     "test-list",
		endpoint: func(string) string { return srv.URL },
		payload:  func(guilds int) any { return map[string]int{"guilds": guilds} },
		client:   srv.Client(),
	}
	assert.Error(t, svc.Report(context.Background(), "bot-1", 1))
}

func TestServicePayloadShapes(t *testing.T) {
	shape := func(s Service) map[string]int {
		body, err := json.Marshal(s.(*httpService).payload(7))
		require.NoError(t, err)
		var m map[string]int
		require.NoError(t, json.Unmarshal(body, &m))
		return m
	}
	assert.Equal(t, map[string]int{"server_count": 7}, shape(TopGG("t")))
	assert.Equal(t, map[string]int{"guildCount": 7}, shape(BotsGG("t")))
	assert.Equal(t, map[string]int{"guilds": 7}, shape(DiscordBotList("t")))
}

type fixedStrategy struct{ n int }

func (f *fixedStrategy) Open(*discordgo.Session) {}
func (f *fixedStrategy) Close()                  {}
func (f *fixedStrategy) Count() (int, error)     { return f.n, nil }

type recordService struct {
	mu       sync.Mutex
	failures int
	reports  []int
}

func (r *recordService) Name() string { return "record" }

func (r *recordService) Report(_ context.Context, _ string, guilds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("flaky")
	}
	r.reports = append(r.reports, guilds)
	return nil
}

func TestReportAllRetriesFlakyServices(t *testing.T) {
	st := discordgo.NewState()
	st.User = &discordgo.User{ID: "bot-1"}
	session := &discordgo.Session{State: st}

	svc := &recordService{failures: 2}
	m := NewManager(session, []Service{svc}, WithStrategy(&fixedStrategy{n: 9}))

	m.reportAll(context.Background())
	assert.Equal(t, []int{9}, svc.reports)
}

func TestReportAllSkipsWithoutBotUser(t *testing.T) {
	session := &discordgo.Session{State: discordgo.NewState()}
	svc := &recordService{}
	m := NewManager(session, []Service{svc}, WithStrategy(&fixedStrategy{n: 9}))

	m.reportAll(context.Background())
	assert.Empty(t, svc.reports)
}
