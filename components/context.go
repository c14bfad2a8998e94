package components

import (
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
)

// ResponseState tracks where an interaction sits in Discord's response
// protocol. Transitions only move forward; a second initial response is a
// protocol violation and fails fast.
type ResponseState int

const (
	// ResponseNone means no response of any kind has been issued yet.
	ResponseNone ResponseState = iota
	// ResponseDeferred means a deferred channel-message response was issued
	// and must be finalized by an edit.
	ResponseDeferred
	// ResponseDeferredUpdate means a deferred message-update response was
	// issued (component interactions only).
	ResponseDeferredUpdate
	// ResponseCreated means the initial response message exists.
	ResponseCreated
	// ResponseMessageUpdated means the component's parent message was updated
	// as the initial response.
	ResponseMessageUpdated
)

// BaseContext carries the response-protocol state machine shared by component
// and modal contexts. It is owned by exactly one in-flight dispatch.
type BaseContext struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu               sync.Mutex
	responder        Responder
	state            ResponseState
	ephemeralDefault bool
}

// NewBaseContext builds a context around a responder. session may be nil when
// the responder is a test double or a webhook capture.
func NewBaseContext(s *discordgo.Session, i *discordgo.Interaction, r Responder) *BaseContext {
	return &BaseContext{session: s, interaction: i, responder: r}
}

// Session returns the gateway session, nil outside gateway dispatch.
func (c *BaseContext) Session() *discordgo.Session { return c.session }

// Interaction returns the raw interaction being handled.
func (c *BaseContext) Interaction() *discordgo.Interaction { return c.interaction }

// AuthorID returns the triggering user's ID for both guild and DM events.
func (c *BaseContext) AuthorID() string {
	if c.interaction.Member != nil && c.interaction.Member.User != nil {
		return c.interaction.Member.User.ID
	}
	if c.interaction.User != nil {
		return c.interaction.User.ID
	}
	return ""
}

// GuildID returns the guild the interaction came from, empty in DMs.
func (c *BaseContext) GuildID() string { return c.interaction.GuildID }

// State returns the current response-protocol state.
func (c *BaseContext) State() ResponseState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasResponded reports whether an initial response message already exists.
func (c *BaseContext) HasResponded() bool {
	s := c.State()
	return s == ResponseCreated || s == ResponseMessageUpdated
}

// HasBeenDeferred reports whether the interaction was deferred and still
// needs to be finalized by an edit.
func (c *BaseContext) HasBeenDeferred() bool {
	s := c.State()
	return s == ResponseDeferred || s == ResponseDeferredUpdate
}

// SetEphemeralDefault makes responses ephemeral unless the call sets explicit
// flags.
func (c *BaseContext) SetEphemeralDefault(state bool) {
	c.mu.Lock()
	c.ephemeralDefault = state
	c.mu.Unlock()
}

func (c *BaseContext) flags(f discordgo.MessageFlags) discordgo.MessageFlags {
	if f == 0 && c.ephemeralDefault {
		return discordgo.MessageFlagsEphemeral
	}
	return f
}

// CreateInitialResponse issues the initial channel-message response. It fails
// with dgkit.ErrAlreadyResponded if any initial response was already issued;
// a deferred interaction must be finalized with EditInitialResponse instead.
func (c *BaseContext) CreateInitialResponse(data *discordgo.InteractionResponseData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ResponseNone {
		return dgkit.ErrAlreadyResponded
	}
	data.Flags = c.flags(data.Flags)
	err := c.responder.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return err
	}
	c.state = ResponseCreated
	return nil
}

// Defer acknowledges the interaction with a deferred channel message.
func (c *BaseContext) Defer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ResponseNone {
		return dgkit.ErrAlreadyResponded
	}
	err := c.responder.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: c.flags(0)},
	})
	if err != nil {
		return err
	}
	c.state = ResponseDeferred
	return nil
}

// Followup creates a followup message; valid only once an initial response or
// deferral exists.
func (c *BaseContext) Followup(params *discordgo.WebhookParams) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ResponseNone {
		return nil, dgkit.ErrNotResponded
	}
	params.Flags = c.flags(params.Flags)
	return c.responder.FollowupCreate(true, params)
}

// EditInitialResponse edits (or, after a deferral, finalizes) the initial
// response.
func (c *BaseContext) EditInitialResponse(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ResponseNone {
		return nil, dgkit.ErrNotResponded
	}
	msg, err := c.responder.ResponseEdit(edit)
	if err != nil {
		return nil, err
	}
	if c.state == ResponseDeferred || c.state == ResponseDeferredUpdate {
		c.state = ResponseCreated
	}
	return msg, nil
}

// DeleteInitialResponse deletes the initial response message.
func (c *BaseContext) DeleteInitialResponse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ResponseNone {
		return dgkit.ErrNotResponded
	}
	return c.responder.ResponseDelete()
}

// Respond is the "do the right thing" reply: it creates the initial response,
// finalizes a pending deferral, or falls back to a followup when the initial
// response already exists.
func (c *BaseContext) Respond(content string, embeds ...*discordgo.MessageEmbed) error {
	switch c.State() {
	case ResponseNone:
		return c.CreateInitialResponse(&discordgo.InteractionResponseData{
			Content: content,
			Embeds:  embeds,
		})
	case ResponseDeferred, ResponseDeferredUpdate:
		_, err := c.EditInitialResponse(&discordgo.WebhookEdit{
			Content: &content,
			Embeds:  &embeds,
		})
		return err
	default:
		_, err := c.Followup(&discordgo.WebhookParams{Content: content, Embeds: embeds})
		return err
	}
}
