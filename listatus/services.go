package listatus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Service posts one bot-list's guild-count update.
type Service interface {
	Name() string
	Report(ctx context.Context, botID string, guilds int) error
}

type httpService struct {
	name     string
	endpoint func(botID string) string
	payload  func(guilds int) any
	token    string
	client   *http.Client
}

func (s *httpService) Name() string { return s.name }

func (s *httpService) Report(ctx context.Context, botID string, guilds int) error {
	body, err := json.Marshal(s.payload(guilds))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(botID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s responded %d", s.name, resp.StatusCode)
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// TopGG reports to top.gg.
func TopGG(token string) Service {
	return &httpService{
		name: "top.gg",
		endpoint: func(botID string) string {
			return "https://top.gg/api/bots/" + botID + "/stats"
		},
		payload: func(guilds int) any {
			return map[string]int{"server_count": guilds}
		},
		token:  token,
		client: newHTTPClient(),
	}
}

// BotsGG reports to discord.bots.gg.
func BotsGG(token string) Service {
	return &httpService{
		name: "discord.bots.gg",
		endpoint: func(botID string) string {
			return "https://discord.bots.gg/api/v1/bots/" + botID + "/stats"
		},
		payload: func(guilds int) any {
			return map[string]int{"guildCount": guilds}
		},
		token:  token,
		client: newHTTPClient(),
	}
}

// DiscordBotList reports to discordbotlist.com.
func DiscordBotList(token string) Service {
	return &httpService{
		name: "discordbotlist.com",
		endpoint: func(botID string) string {
			return "https://discordbotlist.com/api/v1/bots/" + botID + "/stats"
		},
		payload: func(guilds int) any {
			return map[string]int{"guilds": guilds}
		},
		token:  token,
		client: newHTTPClient(),
	}
}
