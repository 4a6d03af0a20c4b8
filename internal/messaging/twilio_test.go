package messaging

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppPrefixHelpers(t *testing.T) {
	assert.Equal(t, "+971501234567", StripWhatsAppPrefix("whatsapp:+971501234567"))
	assert.Equal(t, "+971501234567", StripWhatsAppPrefix(" +971501234567 "))
	assert.Equal(t, "whatsapp:+971501234567", AddWhatsAppPrefix("+971501234567"))
	assert.Equal(t, "whatsapp:+971501234567", AddWhatsAppPrefix("whatsapp:+971501234567"))
}

func TestParseWebhookStripsPrefix(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("From", "whatsapp:+971501234567")
	form.Set("To", "whatsapp:+971800000000")
	form.Set("Body", "I want to book an appointment")

	r := httptest.NewRequest("POST", "/webhooks/twilio", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := ParseWebhook(r)
	require.NoError(t, err)
	assert.Equal(t, "SM123", msg.MessageSid)
	assert.Equal(t, "+971501234567", msg.From)
	assert.Equal(t, "+971800000000", msg.To)
	assert.Equal(t, "I want to book an appointment", msg.Body)
}

func TestValidateTwilioSignature(t *testing.T) {
	const authToken = "test-auth-token"
	const webhookURL = "https://clinic.example.com/webhooks/twilio"

	form := url.Values{}
	form.Set("From", "whatsapp:+971501234567")
	form.Set("Body", "hello")

	r := httptest.NewRequest("POST", "/webhooks/twilio", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, r.ParseForm())
	r.Header.Set("X-Twilio-Signature",
		computeSignature(buildSignaturePayload(webhookURL, r.PostForm), authToken))

	assert.True(t, ValidateTwilioSignature(r, authToken, webhookURL))

	r2 := httptest.NewRequest("POST", "/webhooks/twilio", strings.NewReader(form.Encode()))
	r2.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r2.Header.Set("X-Twilio-Signature", "bogus")
	assert.False(t, ValidateTwilioSignature(r2, authToken, webhookURL))

	r3 := httptest.NewRequest("POST", "/webhooks/twilio", strings.NewReader(form.Encode()))
	r3.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.False(t, ValidateTwilioSignature(r3, authToken, webhookURL), "missing header")
}

func TestBuildSignaturePayloadSortsKeys(t *testing.T) {
	params := url.Values{}
	params.Set("Zebra", "1")
	params.Set("Alpha", "2")

	payload := buildSignaturePayload("https://example.com/hook", params)
	assert.Equal(t, "https://example.com/hookAlpha2Zebra1", payload)
}
