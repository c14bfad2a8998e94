package interactionserver

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
)

// captureResponder records the initial response so the webhook reply can
// carry it back to Discord instead of issuing a REST call. Followups and
// edits still go over REST when a session is wired.
type captureResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu       sync.Mutex
	captured *discordgo.InteractionResponse
}

func (r *captureResponder) Respond(resp *discordgo.InteractionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.captured != nil {
		return dgkit.ErrAlreadyResponded
	}
	r.captured = resp
	return nil
}

func (r *captureResponder) response() *discordgo.InteractionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captured
}

func (r *captureResponder) FollowupCreate(wait bool, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	if r.session == nil {
		return nil, dgkit.ErrUnsupportedOperation
	}
	return r.session.FollowupMessageCreate(r.interaction, wait, params)
}

func (r *captureResponder) ResponseEdit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	if r.session == nil {
		return nil, dgkit.ErrUnsupportedOperation
	}
	return r.session.InteractionResponseEdit(r.interaction, edit)
}

func (r *captureResponder) ResponseDelete() error {
	if r.session == nil {
		return dgkit.ErrUnsupportedOperation
	}
	return r.session.InteractionResponseDelete(r.interaction)
}
