package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saram098/navi-backend-2/internal/appointments"
)

const testWebhookSecret = "whsec_test_secret"

type stubConfirmer struct {
	confirmed []string
	err       error
}

func (s *stubConfirmer) ConfirmPayment(_ context.Context, intentID string) (*appointments.Appointment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.confirmed = append(s.confirmed, intentID)
	return &appointments.Appointment{Status: appointments.StatusConfirmed}, nil
}

func signPayload(payload string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func paymentEvent(eventType, intentID string) string {
	return fmt.Sprintf(
		`{"id":"evt_1","type":%q,"data":{"object":{"id":%q,"object":"payment_intent"}}}`,
		eventType, intentID)
}

func TestStripeWebhookConfirmsAppointment(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := NewStripeWebhookHandler(testWebhookSecret, confirmer, nil)

	payload := paymentEvent("payment_intent.succeeded", "pi_test_123")
	r := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
	r.Header.Set("Stripe-Signature", signPayload(payload))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, []string{"pi_test_123"}, confirmer.confirmed)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := NewStripeWebhookHandler(testWebhookSecret, confirmer, nil)

	payload := paymentEvent("payment_intent.succeeded", "pi_test_123")
	r := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
	r.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, 403, w.Code)
	assert.Empty(t, confirmer.confirmed)
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	confirmer := &stubConfirmer{}
	h := NewStripeWebhookHandler(testWebhookSecret, confirmer, nil)

	payload := paymentEvent("charge.refunded", "pi_test_123")
	r := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
	r.Header.Set("Stripe-Signature", signPayload(payload))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, 200, w.Code)
	assert.Empty(t, confirmer.confirmed)
}

func TestStripeWebhookUnknownIntentIsAcknowledged(t *testing.T) {
	confirmer := &stubConfirmer{err: appointments.ErrNotFound}
	h := NewStripeWebhookHandler(testWebhookSecret, confirmer, nil)

	payload := paymentEvent("payment_intent.succeeded", "pi_unknown")
	r := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
	r.Header.Set("Stripe-Signature", signPayload(payload))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, 200, w.Code)
}

func TestStripeWebhookConfirmFailure(t *testing.T) {
	confirmer := &stubConfirmer{err: errors.New("db down")}
	h := NewStripeWebhookHandler(testWebhookSecret, confirmer, nil)

	payload := paymentEvent("payment_intent.succeeded", "pi_test_123")
	r := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(payload))
	r.Header.Set("Stripe-Signature", signPayload(payload))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, r)

	assert.Equal(t, 500, w.Code)
}
