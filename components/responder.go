package components

import (
	"github.com/bwmarrin/discordgo"
)

// Responder abstracts the interaction response calls a context issues so that
// handlers can be exercised without a live Discord connection and so the
// webhook server can capture responses instead of sending them.
type Responder interface {
	// Respond issues the initial response for the interaction.
	Respond(resp *discordgo.InteractionResponse) error

	// FollowupCreate creates a followup message for an already-responded
	// interaction.
	FollowupCreate(wait bool, params *discordgo.WebhookParams) (*discordgo.Message, error)

	// ResponseEdit edits the initial response.
	ResponseEdit(edit *discordgo.WebhookEdit) (*discordgo.Message, error)

	// ResponseDelete deletes the initial response.
	ResponseDelete() error
}

type sessionResponder struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

// NewSessionResponder wraps a live session and interaction as a Responder.
func NewSessionResponder(s *discordgo.Session, i *discordgo.Interaction) Responder {
	return &sessionResponder{s: s, i: i}
}

func (r *sessionResponder) Respond(resp *discordgo.InteractionResponse) error {
	return r.s.InteractionRespond(r.i, resp)
}

func (r *sessionResponder) FollowupCreate(wait bool, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	return r.s.FollowupMessageCreate(r.i, wait, params)
}

func (r *sessionResponder) ResponseEdit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	return r.s.InteractionResponseEdit(r.i, edit)
}

func (r *sessionResponder) ResponseDelete() error {
	return r.s.InteractionResponseDelete(r.i)
}
