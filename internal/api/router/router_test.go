package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthEndpoint(t *testing.T) {
	h := New(&Config{})

	r := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWebhookRoutesMounted(t *testing.T) {
	var twilioHit, stripeHit bool
	h := New(&Config{
		TwilioWebhook: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			twilioHit = true
			w.WriteHeader(200)
		}),
		StripeWebhook: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			stripeHit = true
			w.WriteHeader(200)
		}),
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/webhooks/twilio", nil))
	assert.Equal(t, 200, w.Code)
	assert.True(t, twilioHit)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/webhooks/stripe", nil))
	assert.Equal(t, 200, w.Code)
	assert.True(t, stripeHit)
}

func TestUnknownRoute(t *testing.T) {
	h := New(&Config{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, 404, w.Code)
}

func TestMetricsMounted(t *testing.T) {
	h := New(&Config{
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(200)
		}),
	})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, w.Code)
}
