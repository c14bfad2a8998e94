// Package interactionserver exposes the component and modal clients as an
// interaction webhook endpoint: an http.Handler for self-hosted deployments
// and an AWS Lambda adapter for API Gateway ones.
package interactionserver

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/xcg-dev/dgkit/components"
	"github.com/xcg-dev/dgkit/modals"
)

const (
	headerSignature = "X-Signature-Ed25519"
	headerTimestamp = "X-Signature-Timestamp"

	defaultMaxBody = 1 << 20 // 1 MiB
)

// Handler verifies and routes interaction webhook requests. Bodies over the
// configured ceiling are rejected before being buffered; signature failures
// map to 401 per Discord's contract.
type Handler struct {
	log *slog.Logger
	pub ed25519.PublicKey

	components *components.Client
	modals     *modals.Client
	session    *discordgo.Session

	maxBody int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithComponentClient routes component interactions into cc.
func WithComponentClient(cc *components.Client) Option {
	return func(h *Handler) { h.components = cc }
}

// WithModalClient routes modal submissions into mc.
func WithModalClient(mc *modals.Client) Option {
	return func(h *Handler) { h.modals = mc }
}

// WithSession lets handlers issue followups and edits through the REST API;
// without it only the initial response works.
func WithSession(s *discordgo.Session) Option {
	return func(h *Handler) { h.session = s }
}

// WithMaxBodyBytes changes the request-size ceiling, default 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) { h.maxBody = n }
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) { h.log = log }
}

// New builds a Handler from the application's hex-encoded public key.
func New(publicKeyHex string, opts ...Option) (*Handler, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, &invalidKeyError{}
	}
	h := &Handler{
		log:     slog.Default(),
		pub:     ed25519.PublicKey(raw),
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type invalidKeyError struct{}

func (*invalidKeyError) Error() string {
	return "interactionserver: public key must be 32 hex-encoded bytes"
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// El techo se valida antes de leer: un body gigante no llega a memoria.
	if r.ContentLength > h.maxBody {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	status, out := h.process(r.Context(), body, r.Header.Get(headerSignature), r.Header.Get(headerTimestamp))
	if status != http.StatusOK {
		http.Error(w, string(out), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// process runs the shared verify-parse-dispatch pipeline and returns the
// response status and body.
func (h *Handler) process(ctx context.Context, body []byte, sigHex, tsHex string) (int, []byte) {
	if !h.verify(body, sigHex, tsHex) {
		return http.StatusUnauthorized, []byte("invalid request signature")
	}

	var interaction discordgo.Interaction
	if err := interaction.UnmarshalJSON(body); err != nil {
		h.log.Debug("malformed interaction payload", "err", err)
		return http.StatusBadRequest, []byte("malformed interaction payload")
	}

	if interaction.Type == discordgo.InteractionPing {
		out, _ := json.Marshal(discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
		return http.StatusOK, out
	}

	ic := &discordgo.InteractionCreate{Interaction: &interaction}
	capture := &captureResponder{session: h.session, interaction: &interaction}

	switch interaction.Type {
	case discordgo.InteractionMessageComponent:
		if h.components == nil {
			return http.StatusNotFound, []byte("component interactions not handled")
		}
		h.components.Dispatch(ctx, h.session, ic, capture)
	case discordgo.InteractionModalSubmit:
		if h.modals == nil {
			return http.StatusNotFound, []byte("modal interactions not handled")
		}
		h.modals.Dispatch(ctx, h.session, ic, capture)
	default:
		return http.StatusNotFound, []byte("unhandled interaction type")
	}

	resp := capture.response()
	if resp == nil {
		h.log.Error("executor produced no initial response", "custom_id", rawCustomID(&interaction))
		return http.StatusInternalServerError, []byte("no response produced")
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return http.StatusInternalServerError, []byte("response serialization failed")
	}
	return http.StatusOK, out
}

func (h *Handler) verify(body []byte, sigHex, tsHex string) bool {
	if sigHex == "" || tsHex == "" {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(tsHex)+len(body))
	msg = append(msg, tsHex...)
	msg = append(msg, body...)
	return ed25519.Verify(h.pub, msg, sig)
}

func rawCustomID(i *discordgo.Interaction) string {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		return i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		return i.ModalSubmitData().CustomID
	default:
		return ""
	}
}
