package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for the webhook pipeline.
type WebhookMetrics struct {
	inboundTotal      *prometheus.CounterVec
	repliesTotal      *prometheus.CounterVec
	processingLatency *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "replyflow",
			Subsystem: "webhooks",
			Name:      "inbound_total",
			Help:      "Total inbound platform webhook sub-events",
		}, []string{"platform", "event_type", "status"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "replyflow",
			Subsystem: "webhooks",
			Name:      "replies_total",
			Help:      "Total replies posted back to platforms",
		}, []string{"platform", "status"}),
		processingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "replyflow",
			Subsystem: "webhooks",
			Name:      "processing_latency_seconds",
			Help:      "Latency of webhook sub-event processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform", "event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.repliesTotal, m.processingLatency)
	return m
}

func (m *WebhookMetrics) ObserveInbound(platform, eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(platform, eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveReply(platform, status string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(platform, status).Inc()
}

func (m *WebhookMetrics) ObserveProcessingLatency(platform, eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.processingLatency.WithLabelValues(platform, eventType).Observe(seconds)
}
