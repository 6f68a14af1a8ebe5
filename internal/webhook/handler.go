package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"messenger_orders/internal/orders"

	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes = 1 << 20

	eventReceived      = "EVENT_RECEIVED"
	invalidToken       = "Invalid verification token"
	invalidRequestText = "Invalid request"
)

// OrderStore persists a fully extracted order.
type OrderStore interface {
	Save(ctx context.Context, record orders.Record) error
}

// Notifier is told about every saved order. Implementations must not block.
type Notifier interface {
	NotifyOrder(ctx context.Context, senderID string, record orders.Record)
}

// Replier confirms a saved order to its sender. Implementations must not block.
type Replier interface {
	ConfirmOrder(ctx context.Context, recipientID string, record orders.Record)
}

type Options struct {
	VerifyToken string
	Patterns    orders.PatternSet
	Store       OrderStore
	Notifier    Notifier
	Replier     Replier
}

type Handler struct {
	verifyToken string
	patterns    orders.PatternSet
	store       OrderStore
	notifier    Notifier
	replier     Replier
}

func NewHandler(opts Options) *Handler {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = orders.DefaultPatterns
	}
	return &Handler{
		verifyToken: opts.VerifyToken,
		patterns:    patterns,
		store:       opts.Store,
		notifier:    opts.Notifier,
		replier:     opts.Replier,
	}
}

// Verify answers the subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := query.Get("hub.verify_token")

	if h.tokenMatches(token) {
		log.Info().Str("mode", query.Get("hub.mode")).Msg("Webhook verified")
		writeText(w, http.StatusOK, query.Get("hub.challenge"))
		return
	}

	log.Warn().Msg("Webhook verification failed")
	writeText(w, http.StatusOK, invalidToken)
}

func (h *Handler) tokenMatches(token string) bool {
	if h.verifyToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.verifyToken)) == 1
}

// Receive decodes an event delivery and dispatches it.
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read payload")
		writeText(w, http.StatusBadRequest, ErrMalformedPayload.Error())
		return
	}

	// Unmarshal rejects anything after the top-level value
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode payload")
		writeText(w, http.StatusBadRequest, ErrMalformedPayload.Error())
		return
	}

	resp, err := h.Dispatch(r.Context(), payload)
	switch {
	case errors.Is(err, ErrMalformedPayload):
		log.Warn().Err(err).Msg("Rejected payload")
		writeText(w, http.StatusBadRequest, ErrMalformedPayload.Error())
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to process event")
		writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	if resp == nil {
		writeText(w, http.StatusOK, eventReceived)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidRequest answers any method other than GET and POST.
func (h *Handler) InvalidRequest(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, invalidRequestText)
}

// Dispatch walks the payload in order. The first message event with text
// decides the response and ends processing; later events are not looked at.
// A nil response means no message event produced one.
func (h *Handler) Dispatch(ctx context.Context, payload Payload) (*Response, error) {
	if payload.Entry == nil {
		return nil, fmt.Errorf("%w: missing entry", ErrMalformedPayload)
	}

	for i, entry := range payload.Entry {
		if entry.Messaging == nil {
			return nil, fmt.Errorf("%w: entry %d missing messaging", ErrMalformedPayload, i)
		}

		for j, event := range entry.Messaging {
			switch {
			case event.Message != nil:
				if event.Sender == nil {
					return nil, fmt.Errorf("%w: entry %d event %d missing sender", ErrMalformedPayload, i, j)
				}
				resp, err := h.handleMessage(ctx, event.Sender.ID, event.Message)
				if err != nil || resp != nil {
					return resp, err
				}
			case event.Postback != nil:
				if event.Sender == nil {
					return nil, fmt.Errorf("%w: entry %d event %d missing sender", ErrMalformedPayload, i, j)
				}
				h.handlePostback(event.Sender.ID, event.Postback)
			}
		}
	}

	return nil, nil
}

func (h *Handler) handleMessage(ctx context.Context, senderID string, msg *Message) (*Response, error) {
	log.Info().Str("sender_id", senderID).Msg("Received message")
	log.Debug().Str("sender_id", senderID).Str("text", msg.Text).Msg("Message text")

	if msg.Text == "" {
		log.Debug().Str("sender_id", senderID).Msg("Message has no text, skipping")
		return nil, nil
	}

	record, err := h.patterns.Extract(msg.Text)
	if err != nil {
		log.Info().Err(err).Str("sender_id", senderID).Msg("Order details not found")
		return &Response{Status: StatusError, Message: orderNotFoundMessage}, nil
	}

	if err := h.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save order from %s: %w", senderID, err)
	}
	log.Info().Str("sender_id", senderID).Msg("Order saved")

	background := context.WithoutCancel(ctx)
	if h.notifier != nil {
		h.notifier.NotifyOrder(background, senderID, record)
	}
	if h.replier != nil {
		h.replier.ConfirmOrder(background, senderID, record)
	}

	return &Response{Status: StatusSuccess, OrderDetails: &record}, nil
}

func (h *Handler) handlePostback(senderID string, pb *Postback) {
	log.Info().
		Str("sender_id", senderID).
		Str("payload", pb.Payload).
		Msg("Received postback")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
