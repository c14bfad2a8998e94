// Package links parses the Discord URL shapes bots commonly receive pasted
// into commands: message, channel, invite, webhook and template links.
package links

import (
	"regexp"

	"github.com/xcg-dev/dgkit"
)

var (
	messageLinkRe  = regexp.MustCompile(`https?://(?:www\.|ptb\.|canary\.)?discord(?:app)?\.com/channels/(\d+|@me)/(\d+)/(\d+)`)
	channelLinkRe  = regexp.MustCompile(`https?://(?:www\.|ptb\.|canary\.)?discord(?:app)?\.com/channels/(\d+|@me)/(\d+)`)
	inviteLinkRe   = regexp.MustCompile(`https?://(?:www\.)?(?:discord\.gg|discord(?:app)?\.com/invite)/([\w-]+)`)
	webhookLinkRe  = regexp.MustCompile(`https?://(?:www\.|ptb\.|canary\.)?discord(?:app)?\.com/api/(?:v\d+/)?webhooks/(\d+)/([\w-]+)`)
	templateLinkRe = regexp.MustCompile(`https?://(?:www\.)?(?:discord\.new|discord(?:app)?\.com/template)/([\w-]+)`)
)

// MessageLink points at one message. GuildID is empty for DM links.
type MessageLink struct {
	GuildID   string
	ChannelID string
	MessageID string
}

func (l MessageLink) String() string {
	guild := l.GuildID
	if guild == "" {
		guild = "@me"
	}
	return "https://discord.com/channels/" + guild + "/" + l.ChannelID + "/" + l.MessageID
}

// ParseMessageLink parses the first message link in s.
func ParseMessageLink(s string) (MessageLink, error) {
	m := messageLinkRe.FindStringSubmatch(s)
	if m == nil {
		return MessageLink{}, dgkit.Validationf("no message link in %q", s)
	}
	return messageLinkFrom(m), nil
}

// FindMessageLinks parses every message link in s, in order.
func FindMessageLinks(s string) []MessageLink {
	var out []MessageLink
	for _, m := range messageLinkRe.FindAllStringSubmatch(s, -1) {
		out = append(out, messageLinkFrom(m))
	}
	return out
}

func messageLinkFrom(m []string) MessageLink {
	guild := m[1]
	if guild == "@me" {
		guild = ""
	}
	return MessageLink{GuildID: guild, ChannelID: m[2], MessageID: m[3]}
}

// ChannelLink points at one channel. GuildID is empty for DM links.
type ChannelLink struct {
	GuildID   string
	ChannelID string
}

func (l ChannelLink) String() string {
	guild := l.GuildID
	if guild == "" {
		guild = "@me"
	}
	return "https://discord.com/channels/" + guild + "/" + l.ChannelID
}

// ParseChannelLink parses the first channel link in s. Message links also
// match, yielding their channel half.
func ParseChannelLink(s string) (ChannelLink, error) {
	m := channelLinkRe.FindStringSubmatch(s)
	if m == nil {
		return ChannelLink{}, dgkit.Validationf("no channel link in %q", s)
	}
	guild := m[1]
	if guild == "@me" {
		guild = ""
	}
	return ChannelLink{GuildID: guild, ChannelID: m[2]}, nil
}

// InviteLink carries an invite code.
type InviteLink struct {
	Code string
}

func (l InviteLink) String() string {
	return "https://discord.gg/" + l.Code
}

// ParseInviteLink parses the first invite link in s.
func ParseInviteLink(s string) (InviteLink, error) {
	m := inviteLinkRe.FindStringSubmatch(s)
	if m == nil {
		return InviteLink{}, dgkit.Validationf("no invite link in %q", s)
	}
	return InviteLink{Code: m[1]}, nil
}

// WebhookLink carries a webhook's ID and token.
type WebhookLink struct {
	WebhookID string
	Token     string
}

func (l WebhookLink) String() string {
	return "https://discord.com/api/webhooks/" + l.WebhookID + "/" + l.Token
}

// ParseWebhookLink parses the first webhook link in s.
func ParseWebhookLink(s string) (WebhookLink, error) {
	m := webhookLinkRe.FindStringSubmatch(s)
	if m == nil {
		return WebhookLink{}, dgkit.Validationf("no webhook link in %q", s)
	}
	return WebhookLink{WebhookID: m[1], Token: m[2]}, nil
}

// TemplateLink carries a guild-template code.
type TemplateLink struct {
	Code string
}

func (l TemplateLink) String() string {
	return "https://discord.new/" + l.Code
}

// ParseTemplateLink parses the first template link in s.
func ParseTemplateLink(s string) (TemplateLink, error) {
	m := templateLinkRe.FindStringSubmatch(s)
	if m == nil {
		return TemplateLink{}, dgkit.Validationf("no template link in %q", s)
	}
	return TemplateLink{Code: m[1]}, nil
}
