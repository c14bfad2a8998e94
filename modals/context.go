package modals

import (
	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit/components"
)

// Context is handed to modal handlers for a single submission.
type Context struct {
	*components.BaseContext

	event *discordgo.InteractionCreate

	idMatch    string
	idMetadata string
	values     map[string]string
}

// NewContext builds a modal context, extracting the submitted field values.
func NewContext(s *discordgo.Session, ic *discordgo.InteractionCreate, r components.Responder, match, metadata string) *Context {
	return &Context{
		BaseContext: components.NewBaseContext(s, ic.Interaction, r),
		event:       ic,
		idMatch:     match,
		idMetadata:  metadata,
		values:      collectValues(ic.ModalSubmitData()),
	}
}

// collectValues flattens the submitted component tree back into a field
// custom-id to value mapping.
func collectValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := map[string]string{}
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if in, ok := comp.(*discordgo.TextInput); ok {
				values[in.CustomID] = in.Value
			}
		}
	}
	return values
}

// Event returns the raw gateway event.
func (c *Context) Event() *discordgo.InteractionCreate { return c.event }

// IDMatch returns the lookup half of the modal's custom ID.
func (c *Context) IDMatch() string { return c.idMatch }

// IDMetadata returns the metadata half of the custom ID, empty when absent.
func (c *Context) IDMetadata() string { return c.idMetadata }

// Field returns the submitted value of one declared field.
func (c *Context) Field(customID string) (string, bool) {
	v, ok := c.values[customID]
	return v, ok
}

// Fields returns every submitted value keyed by field custom ID.
func (c *Context) Fields() map[string]string {
	cp := make(map[string]string, len(c.values))
	for k, v := range c.values {
		cp[k] = v
	}
	return cp
}
