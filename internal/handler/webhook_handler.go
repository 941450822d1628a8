package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/payment"
)

// maxWebhookBody is the largest callback body accepted from the processor.
const maxWebhookBody = 64 << 10

// EventResolver applies a verified processor event to its donation.
type EventResolver interface {
	ResolveEvent(ctx context.Context, ev *payment.Event) (*model.Transition, error)
}

// WebhookHandler receives payment processor callbacks. The signature is
// verified before anything is looked up.
type WebhookHandler struct {
	Gateway  payment.Gateway
	Resolver EventResolver
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if len(payload) > maxWebhookBody {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
		return
	}

	ev, err := h.Gateway.ParseEvent(payload, r.Header)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
			return
		}
		writeError(w, err)
		return
	}

	log.Printf("📥 Webhook %s (%s) for session %s\n", ev.ID, ev.Type, ev.CorrelationID)
	t, err := h.Resolver.ResolveEvent(r.Context(), ev)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"received": true}
	if t != nil {
		resp["donation_id"] = t.DonationID
		resp["status"] = t.To
		resp["changed"] = t.Changed
	}
	writeJSON(w, http.StatusOK, resp)
}
