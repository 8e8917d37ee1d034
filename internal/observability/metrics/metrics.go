package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat flow. A nil
// *ChatMetrics is valid and records nothing.
type ChatMetrics struct {
	repliesTotal      *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	persistTotal      *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel_assistant",
			Subsystem: "chat",
			Name:      "replies_total",
			Help:      "Total chat replies by source",
		}, []string{"source"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travel_assistant",
			Subsystem: "chat",
			Name:      "completion_latency_seconds",
			Help:      "Latency of completion provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel_assistant",
			Subsystem: "chat",
			Name:      "persisted_turns_total",
			Help:      "Conversation turn writes by role and outcome",
		}, []string{"role", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.repliesTotal, m.completionLatency, m.persistTotal)
	return m
}

func (m *ChatMetrics) ObserveReply(source string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(source).Inc()
}

func (m *ChatMetrics) ObserveCompletion(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.completionLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *ChatMetrics) ObservePersist(role, status string) {
	if m == nil {
		return
	}
	m.persistTotal.WithLabelValues(role, status).Inc()
}
