package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/saram098/navi-backend-2/internal/appointments"
	"github.com/saram098/navi-backend-2/pkg/logging"
)

const maxWebhookBodyBytes = 65536

// PaymentConfirmer finalizes an appointment once its payment succeeds.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, paymentIntentID string) (*appointments.Appointment, error)
}

// StripeWebhookHandler confirms appointments when Stripe reports a
// successful payment intent.
type StripeWebhookHandler struct {
	webhookSecret string
	confirmer     PaymentConfirmer
	logger        *logging.Logger
}

// NewStripeWebhookHandler creates the webhook endpoint handler.
func NewStripeWebhookHandler(webhookSecret string, confirmer PaymentConfirmer, logger *logging.Logger) *StripeWebhookHandler {
	if confirmer == nil {
		panic("payments: payment confirmer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeWebhookHandler{
		webhookSecret: webhookSecret,
		confirmer:     confirmer,
		logger:        logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *StripeWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("rejected stripe webhook", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		h.handleSucceeded(w, r, event)
	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err == nil {
			h.logger.Warn("payment intent failed", "payment_intent_id", intent.ID)
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *StripeWebhookHandler) handleSucceeded(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		h.logger.Error("failed to decode payment intent event", "error", err, "event_id", event.ID)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	appt, err := h.confirmer.ConfirmPayment(r.Context(), intent.ID)
	if err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			// Unknown or already-confirmed intent; acknowledge so Stripe
			// stops retrying.
			h.logger.Warn("payment succeeded for unknown appointment",
				"payment_intent_id", intent.ID, "event_id", event.ID)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("failed to confirm paid appointment", "error", err, "payment_intent_id", intent.ID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("appointment confirmed by payment",
		"appointment_id", appt.ID, "payment_intent_id", intent.ID)
	w.WriteHeader(http.StatusOK)
}
