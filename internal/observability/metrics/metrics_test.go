package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestChatbotMetricsObserve(t *testing.T) {
	m := NewChatbotMetrics(prometheus.NewRegistry())
	m.ObserveMessage("book_appointment")
	m.ObserveReply("ok")
	m.ObserveTurnLatency("book_appointment", 0.25)
	m.ObserveBooking("Cardiology")
	m.ObserveCancellation()
}

func TestChatbotMetricsNilReceiver(t *testing.T) {
	var m *ChatbotMetrics
	m.ObserveMessage("other")
	m.ObserveReply("error")
	m.ObserveTurnLatency("other", 0.1)
	m.ObserveBooking("Dermatology")
	m.ObserveCancellation()
}
