package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"hookfan/internal/dispatch"
	"hookfan/internal/event"
	"hookfan/internal/signing"
)

// SignatureHeader carries the provider's integrity tag, "sha1=<hexdigest>"
// over the raw request body.
const SignatureHeader = "X-Hub-Signature"

const maxPayloadSize = 256 * 1024 // 256KB

// Dispatcher is what the ingress needs from the fan-out side.
type Dispatcher interface {
	Dispatch(ctx context.Context, item event.Item) []dispatch.Outcome
}

// WebhookHandler is the ingress gate: handshake authorization on GET,
// signature verification plus normalize-and-dispatch on POST. Rejections
// are soft — the provider gets 200 either way, because non-200 responses
// only trigger its retry storm.
type WebhookHandler struct {
	secret      string
	verifyToken string
	strict      bool
	dispatcher  Dispatcher
	log         zerolog.Logger
}

func NewWebhookHandler(secret, verifyToken string, strict bool, dispatcher Dispatcher, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:      secret,
		verifyToken: verifyToken,
		strict:      strict,
		dispatcher:  dispatcher,
		log:         log.With().Str("component", "webhook").Logger(),
	}
}

// Handshake answers the provider's one-time subscription confirmation. On a
// token match the literal challenge is echoed back; anything else gets a
// 200 with a rejection body, never the challenge.
func (h *WebhookHandler) Handshake(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" {
		h.log.Warn().Str("mode", q.Get("hub.mode")).Msg("unexpected handshake mode")
		w.Write([]byte("ok"))
		return
	}
	if q.Get("hub.verify_token") != h.verifyToken {
		h.log.Warn().Msg("handshake verify token mismatch")
		w.Write([]byte("rejected"))
		return
	}

	h.log.Info().Msg("subscription handshake authorized")
	w.Write([]byte(q.Get("hub.challenge")))
}

// Receive ingests a webhook delivery: verify the signature on the raw
// bytes, normalize the envelope, dispatch every item, wait for all
// deliveries to settle, acknowledge.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to read request body")
		w.Write([]byte("ok"))
		return
	}

	if err := signing.Verify(h.secret, body, r.Header.Get(SignatureHeader)); err != nil {
		h.log.Warn().Err(err).Msg("dropping request")
		w.Write([]byte("ok"))
		return
	}

	var env event.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.log.Warn().Err(err).Msg("malformed envelope")
		w.Write([]byte("ok"))
		return
	}
	if !event.KnownObject(env.Object) {
		h.log.Warn().Str("object", env.Object).Msg("unknown object kind")
		w.Write([]byte("ok"))
		return
	}

	items, skipped := event.Normalize(env)
	if skipped > 0 {
		h.log.Warn().Int("skipped", skipped).Msg("entries without changes or messaging")
	}

	var total, failed int
	for _, item := range items {
		for _, outcome := range h.dispatcher.Dispatch(r.Context(), item) {
			total++
			if !outcome.OK() {
				failed++
			}
		}
	}

	h.log.Info().
		Str("object", env.Object).
		Int("items", len(items)).
		Int("deliveries", total).
		Int("failed", failed).
		Msg("webhook processed")

	if h.strict && total > 0 && failed == total {
		http.Error(w, "delivery failed", http.StatusInternalServerError)
		return
	}
	w.Write([]byte("ok"))
}
