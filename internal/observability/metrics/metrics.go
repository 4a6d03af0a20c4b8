package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatbotMetrics exposes counters/histograms for chatbot message flows.
type ChatbotMetrics struct {
	messagesTotal *prometheus.CounterVec
	repliesTotal  *prometheus.CounterVec
	turnLatency   *prometheus.HistogramVec
	bookingsTotal *prometheus.CounterVec
	cancellations prometheus.Counter
}

func NewChatbotMetrics(reg prometheus.Registerer) *ChatbotMetrics {
	m := &ChatbotMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navi",
			Subsystem: "chatbot",
			Name:      "messages_total",
			Help:      "Total inbound WhatsApp messages by classified intent",
		}, []string{"intent"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navi",
			Subsystem: "chatbot",
			Name:      "replies_total",
			Help:      "Total chatbot replies by outcome",
		}, []string{"status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "navi",
			Subsystem: "chatbot",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "navi",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Appointments created through the chatbot",
		}, []string{"specialty"}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navi",
			Subsystem: "bookings",
			Name:      "cancelled_total",
			Help:      "Appointments cancelled through the chatbot",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.repliesTotal, m.turnLatency, m.bookingsTotal, m.cancellations)
	return m
}

func (m *ChatbotMetrics) ObserveMessage(intent string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent).Inc()
}

func (m *ChatbotMetrics) ObserveReply(status string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(status).Inc()
}

func (m *ChatbotMetrics) ObserveTurnLatency(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(intent).Observe(seconds)
}

func (m *ChatbotMetrics) ObserveBooking(specialty string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(specialty).Inc()
}

func (m *ChatbotMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}
