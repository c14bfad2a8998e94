package components

import (
	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit"
)

// Context is handed to component executors for a single dispatch.
type Context struct {
	*BaseContext

	event *discordgo.InteractionCreate
	data  discordgo.MessageComponentInteractionData

	idMatch    string
	idMetadata string
}

// NewContext builds a component context. Exposed for tests and custom
// transports; gateway dispatch builds these internally.
func NewContext(s *discordgo.Session, ic *discordgo.InteractionCreate, r Responder, match, metadata string) *Context {
	return &Context{
		BaseContext: NewBaseContext(s, ic.Interaction, r),
		event:       ic,
		data:        ic.MessageComponentData(),
		idMatch:     match,
		idMetadata:  metadata,
	}
}

// Event returns the raw gateway event.
func (c *Context) Event() *discordgo.InteractionCreate { return c.event }

// IDMatch returns the lookup half of the pressed component's custom ID.
func (c *Context) IDMatch() string { return c.idMatch }

// IDMetadata returns the metadata half of the custom ID, empty when absent.
func (c *Context) IDMetadata() string { return c.idMetadata }

// SelectedValues returns the selected option values for select-menu
// interactions, nil for button presses.
func (c *Context) SelectedValues() []string { return c.data.Values }

// Message returns the message the pressed component is attached to.
func (c *Context) Message() *discordgo.Message { return c.event.Message }

// DeferUpdate acknowledges the interaction without changing the message.
// This is the correct no-op for boundary presses on a paginator.
func (c *Context) DeferUpdate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ResponseNone {
		return dgkit.ErrAlreadyResponded
	}
	err := c.responder.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		return err
	}
	c.state = ResponseDeferredUpdate
	return nil
}

// UpdateMessage edits the component's parent message as the initial response.
func (c *Context) UpdateMessage(data *discordgo.InteractionResponseData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ResponseNone {
		return dgkit.ErrAlreadyResponded
	}
	err := c.responder.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
	if err != nil {
		return err
	}
	c.state = ResponseMessageUpdated
	return nil
}

// CreateModalResponse opens a modal as the initial response.
func (c *Context) CreateModalResponse(customID, title string, rows []discordgo.MessageComponent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ResponseNone {
		return dgkit.ErrAlreadyResponded
	}
	err := c.responder.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: rows,
		},
	})
	if err != nil {
		return err
	}
	c.state = ResponseCreated
	return nil
}
