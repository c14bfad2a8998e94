package interactionserver

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcg-dev/dgkit/components"
	"github.com/xcg-dev/dgkit/modals"
)

type signer struct {
	priv ed25519.PrivateKey
	ts   string
}

func newKeyedHandler(t *testing.T, opts ...Option) (*Handler, *signer) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	h, err := New(hex.EncodeToString(pub), opts...)
	require.NoError(t, err)
	return h, &signer{priv: priv, ts: "1700000000"}
}

func (s *signer) sign(body []byte) string {
	msg := append([]byte(s.ts), body...)
	return hex.EncodeToString(ed25519.Sign(s.priv, msg))
}

func (s *signer) request(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))
	req.Header.Set(headerSignature, s.sign(body))
	req.Header.Set(headerTimestamp, s.ts)
	return req
}

const pingBody = `{"type":1}`

func componentBody(customID string) []byte {
	return []byte(`{"type":3,"data":{"component_type":2,"custom_id":"` + customID + `"},"member":{"user":{"id":"u1"}},"message":{"id":"m1"}}`)
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("not hex")
	assert.Error(t, err)
	_, err = New("abcd")
	assert.Error(t, err)
}

func TestPingPong(t *testing.T) {
	h, s := newKeyedHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request([]byte(pingBody)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponsePong, resp.Type)
}

func TestRejectsBadSignature(t *testing.T) {
	h, s := newKeyedHandler(t)

	req := s.request([]byte(pingBody))
	req.Header.Set(headerSignature, hex.EncodeToString(make([]byte, ed25519.SignatureSize)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsMissingHeaders(t *testing.T) {
	h, _ := newKeyedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(pingBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsTamperedBody(t *testing.T) {
	h, s := newKeyedHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{"type":1} `))
	req.Header.Set(headerSignature, s.sign([]byte(pingBody)))
	req.Header.Set(headerTimestamp, s.ts)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsNonPost(t *testing.T) {
	h, _ := newKeyedHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/interactions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRejectsOversizedBody(t *testing.T) {
	h, s := newKeyedHandler(t, WithMaxBodyBytes(16))
	body := []byte(`{"type":1,"padding":"` + strings.Repeat("x", 64) + `"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request(body))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMalformedPayload(t *testing.T) {
	h, s := newKeyedHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request([]byte("definitely not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnhandledInteractionType(t *testing.T) {
	h, s := newKeyedHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request([]byte(`{"type":2,"data":{"name":"ping"}}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComponentRoutingCapturesResponse(t *testing.T) {
	cc := components.NewClient()
	require.NoError(t, cc.RegisterGlobal(components.NewCallbackExecutor().SetCallback("btn",
		func(_ context.Context, cctx *components.Context) error {
			return cctx.Respond("clicked " + cctx.IDMetadata())
		})))

	h, s := newKeyedHandler(t, WithComponentClient(cc))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request(componentBody("btn:meta")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "clicked meta", resp.Data.Content)
}

func TestComponentMissStillProducesAResponse(t *testing.T) {
	h, s := newKeyedHandler(t, WithComponentClient(components.NewClient()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request(componentBody("ghost")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
}

func TestComponentWithoutClient(t *testing.T) {
	h, s := newKeyedHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request(componentBody("btn")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModalRouting(t *testing.T) {
	mc := modals.NewClient()
	require.NoError(t, mc.Register("feedback", modals.MustNew(
		func(_ context.Context, mctx *modals.Context) error {
			v, _ := mctx.Field("subject")
			return mctx.Respond("got " + v)
		}, modals.Field{CustomID: "subject"})))

	h, s := newKeyedHandler(t, WithModalClient(mc))
	body := []byte(`{"type":5,"data":{"custom_id":"feedback","components":[{"type":1,"components":[{"type":4,"custom_id":"subject","value":"hi"}]}]},"member":{"user":{"id":"u1"}}}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, s.request(body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp discordgo.InteractionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "got hi", resp.Data.Content)
}

func TestLambdaAdapter(t *testing.T) {
	h, s := newKeyedHandler(t)
	fn := h.Lambda()

	resp, err := fn(context.Background(), events.APIGatewayV2HTTPRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(pingBody)),
		IsBase64Encoded: true,
		Headers: map[string]string{
			// API Gateway lowercases header names.
			strings.ToLower(headerSignature): s.sign([]byte(pingBody)),
			strings.ToLower(headerTimestamp): s.ts,
		},
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodPost},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"type":1}`, resp.Body)
}

func TestLambdaRejectsBadBase64(t *testing.T) {
	h, _ := newKeyedHandler(t)
	resp, err := h.Lambda()(context.Background(), events.APIGatewayV2HTTPRequest{
		Body:            "%%% not base64 %%%",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
