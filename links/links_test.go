package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcg-dev/dgkit"
)

func TestParseMessageLink(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want MessageLink
	}{
		{
			"guild message",
			"https://discord.com/channels/111/222/333",
			MessageLink{GuildID: "111", ChannelID: "222", MessageID: "333"},
		},
		{
			"dm message",
			"https://discord.com/channels/@me/222/333",
			MessageLink{ChannelID: "222", MessageID: "333"},
		},
		{
			"canary host",
			"https://canary.discord.com/channels/111/222/333",
			MessageLink{GuildID: "111", ChannelID: "222", MessageID: "333"},
		},
		{
			"legacy discordapp host",
			"http://discordapp.com/channels/111/222/333",
			MessageLink{GuildID: "111", ChannelID: "222", MessageID: "333"},
		},
		{
			"embedded in surrounding text",
			"look at this https://discord.com/channels/111/222/333 please",
			MessageLink{GuildID: "111", ChannelID: "222", MessageID: "333"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseMessageLink(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseMessageLinkMiss(t *testing.T) {
	_, err := ParseMessageLink("https://example.com/channels/1/2/3")
	var verr *dgkit.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestMessageLinkRoundTrip(t *testing.T) {
	for _, l := range []MessageLink{
		{GuildID: "111", ChannelID: "222", MessageID: "333"},
		{ChannelID: "222", MessageID: "333"},
	} {
		got, err := ParseMessageLink(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
}

func TestFindMessageLinks(t *testing.T) {
	text := "a https://discord.com/channels/1/2/3 b https://discord.com/channels/@me/5/6 c"
	got := FindMessageLinks(text)
	require.Len(t, got, 2)
	assert.Equal(t, MessageLink{GuildID: "1", ChannelID: "2", MessageID: "3"}, got[0])
	assert.Equal(t, MessageLink{ChannelID: "5", MessageID: "6"}, got[1])

	assert.Empty(t, FindMessageLinks("no links here"))
}

func TestParseChannelLink(t *testing.T) {
	got, err := ParseChannelLink("https://discord.com/channels/111/222")
	require.NoError(t, err)
	assert.Equal(t, ChannelLink{GuildID: "111", ChannelID: "222"}, got)

	got, err = ParseChannelLink("https://discord.com/channels/@me/222")
	require.NoError(t, err)
	assert.Equal(t, ChannelLink{ChannelID: "222"}, got)

	round, err := ParseChannelLink(got.String())
	require.NoError(t, err)
	assert.Equal(t, got, round)
}

func TestParseInviteLink(t *testing.T) {
	for _, in := range []string{
		"https://discord.gg/abc-123",
		"https://discord.com/invite/abc-123",
		"https://discordapp.com/invite/abc-123",
	} {
		got, err := ParseInviteLink(in)
		require.NoError(t, err)
		assert.Equal(t, InviteLink{Code: "abc-123"}, got)
	}

	_, err := ParseInviteLink("https://discord.com/channels/1/2")
	assert.Error(t, err)
}

func TestParseWebhookLink(t *testing.T) {
	got, err := ParseWebhookLink("https://discord.com/api/webhooks/123/tok_en-value")
	require.NoError(t, err)
	assert.Equal(t, WebhookLink{WebhookID: "123", Token: "tok_en-value"}, got)

	got, err = ParseWebhookLink("https://discord.com/api/v10/webhooks/123/abc")
	require.NoError(t, err)
	assert.Equal(t, "123", got.WebhookID)

	round, err := ParseWebhookLink(got.String())
	require.NoError(t, err)
	assert.Equal(t, got, round)
}

func TestParseTemplateLink(t *testing.T) {
	for _, in := range []string{
		"https://discord.new/abc123",
		"https://discord.com/template/abc123",
	} {
		got, err := ParseTemplateLink(in)
		require.NoError(t, err)
		assert.Equal(t, TemplateLink{Code: "abc123"}, got)
	}
}
