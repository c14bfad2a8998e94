package modals

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcg-dev/dgkit"
	"github.com/xcg-dev/dgkit/timeouts"
)

type fakeResponder struct {
	responses []*discordgo.InteractionResponse
}

func (r *fakeResponder) Respond(resp *discordgo.InteractionResponse) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *fakeResponder) FollowupCreate(wait bool, params *discordgo.WebhookParams) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (r *fakeResponder) ResponseEdit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (r *fakeResponder) ResponseDelete() error { return nil }

func submitEvent(customID string, fields map[string]string) *discordgo.InteractionCreate {
	var rows []discordgo.MessageComponent
	for id, value := range fields {
		rows = append(rows, &discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: id, Value: value},
			},
		})
	}
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionModalSubmit,
		Data: discordgo.ModalSubmitInteractionData{
			CustomID:   customID,
			Components: rows,
		},
		Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}}
}

func TestRegisterConflictsAndDeregister(t *testing.T) {
	c := NewClient()
	m := MustNew(noop, Field{CustomID: "a"})

	require.NoError(t, c.Register("form", m))
	assert.ErrorIs(t, c.Register("form", m), dgkit.ErrConflict)

	require.NoError(t, c.Deregister("form"))
	assert.ErrorIs(t, c.Deregister("form"), dgkit.ErrNotFound)
	assert.NoError(t, c.Register("form", m))
}

func TestRegisterRejectsSeparatorInMatch(t *testing.T) {
	c := NewClient()
	err := c.Register("has:separator", MustNew(noop, Field{CustomID: "a"}))
	var verr *dgkit.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDispatchDeliversSubmittedValues(t *testing.T) {
	c := NewClient()
	var got map[string]string
	var metadata string
	m := MustNew(func(_ context.Context, mctx *Context) error {
		got = mctx.Fields()
		metadata = mctx.IDMetadata()
		return mctx.Respond("thanks")
	}, Field{CustomID: "subject"}, Field{CustomID: "details"})
	require.NoError(t, c.Register("feedback", m))

	r := &fakeResponder{}
	c.Dispatch(context.Background(), nil, submitEvent("feedback:u42", map[string]string{
		"subject": "bug",
		"details": "it broke",
	}), r)

	assert.Equal(t, map[string]string{"subject": "bug", "details": "it broke"}, got)
	assert.Equal(t, "u42", metadata)
	require.Len(t, r.responses, 1)
	assert.Equal(t, "thanks", r.responses[0].Data.Content)
}

func TestFieldLookup(t *testing.T) {
	mctx := NewContext(nil, submitEvent("f", map[string]string{"a": "1"}), &fakeResponder{}, "f", "")
	v, ok := mctx.Field("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = mctx.Field("missing")
	assert.False(t, ok)
}

func TestDispatchMissNotice(t *testing.T) {
	c := NewClient(WithMissMessage("too late"))
	r := &fakeResponder{}
	c.Dispatch(context.Background(), nil, submitEvent("ghost", nil), r)

	require.Len(t, r.responses, 1)
	assert.Equal(t, "too late", r.responses[0].Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, r.responses[0].Data.Flags)
}

func TestHandlerClosedDeregisters(t *testing.T) {
	c := NewClient()
	require.NoError(t, c.Register("once", MustNew(func(context.Context, *Context) error {
		return dgkit.ErrExecutorClosed
	}, Field{CustomID: "a"})))

	c.Dispatch(context.Background(), nil, submitEvent("once", nil), &fakeResponder{})

	r := &fakeResponder{}
	c.Dispatch(context.Background(), nil, submitEvent("once", nil), r)
	require.Len(t, r.responses, 1)
	assert.Equal(t, defaultMissMessage, r.responses[0].Data.Content)
}

func TestSweepEvictsExpired(t *testing.T) {
	c := NewClient()
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return start }

	require.NoError(t, c.Register("short", MustNew(noop, Field{CustomID: "a"}),
		WithTimeout(timeouts.Static(start.Add(time.Minute), timeouts.WithMaxUses(timeouts.Unlimited)))))
	require.NoError(t, c.Register("long", MustNew(noop, Field{CustomID: "a"}),
		WithTimeout(timeouts.Never())))

	c.sweep(start.Add(2 * time.Minute))

	c.mu.RLock()
	_, shortAlive := c.byMatch["short"]
	_, longAlive := c.byMatch["long"]
	c.mu.RUnlock()
	assert.False(t, shortAlive)
	assert.True(t, longAlive)
}

func TestHandlerPanicIsContained(t *testing.T) {
	c := NewClient()
	require.NoError(t, c.Register("boom", MustNew(func(context.Context, *Context) error {
		panic("kaput")
	}, Field{CustomID: "a"})))

	r := &fakeResponder{}
	assert.NotPanics(t, func() {
		c.Dispatch(context.Background(), nil, submitEvent("boom", nil), r)
	})
	require.Len(t, r.responses, 1)
}
