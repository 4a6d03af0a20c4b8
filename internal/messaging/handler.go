package messaging

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/saram098/navi-backend-2/internal/chatbot"
	"github.com/saram098/navi-backend-2/pkg/logging"
)

var handlerTracer = otel.Tracer("navi.internal.messaging.handler")

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// Publisher enqueues inbound messages for asynchronous processing.
type Publisher interface {
	Publish(ctx context.Context, msg chatbot.InboundMessage) (string, error)
}

// WebhookHandler accepts Twilio WhatsApp webhooks, queues the message,
// and acknowledges immediately with empty TwiML. The eventual reply goes
// out through the dispatcher, not this response.
type WebhookHandler struct {
	publisher Publisher
	authToken string
	// webhookURL is the public URL Twilio signs against. Empty disables
	// signature validation (local development).
	webhookURL string
	logger     *logging.Logger
}

// NewWebhookHandler builds the inbound webhook handler.
func NewWebhookHandler(publisher Publisher, authToken, webhookURL string, logger *logging.Logger) *WebhookHandler {
	if publisher == nil {
		panic("messaging: publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{
		publisher:  publisher,
		authToken:  authToken,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := handlerTracer.Start(r.Context(), "messaging.webhook.twilio")
	defer span.End()

	if h.webhookURL != "" && h.authToken != "" {
		if !ValidateTwilioSignature(r, h.authToken, h.webhookURL) {
			h.logger.Warn("rejected webhook with invalid twilio signature",
				"remote_addr", r.RemoteAddr)
			http.Error(w, "invalid signature", http.StatusForbidden)
			return
		}
	}

	msg, err := ParseWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if msg.From == "" || msg.Body == "" {
		writeTwiML(w)
		return
	}
	span.SetAttributes(attribute.String("navi.message_sid", msg.MessageSid))

	id, err := h.publisher.Publish(ctx, chatbot.InboundMessage{
		Phone: msg.From,
		Body:  msg.Body,
	})
	if err != nil {
		h.logger.Error("failed to queue inbound message", "error", err, "phone", msg.From)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("inbound whatsapp message accepted",
		"message_id", id, "message_sid", msg.MessageSid, "phone", msg.From)
	writeTwiML(w)
}

func writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyTwiML))
}
