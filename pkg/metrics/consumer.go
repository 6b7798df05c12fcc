package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics records metadata for gateway event consumption.
type ConsumerMetrics struct {
	duration *prometheus.HistogramVec
	handled  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_event_duration_seconds",
		Help:    "Duration of gateway event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_handled",
		Help: "Successfully handled gateway events.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_failed",
		Help: "Gateway events that failed handling.",
	}, []string{"event_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_skipped",
		Help: "Gateway events skipped (duplicates, unknown types).",
	}, []string{"event_type"})
	reg.MustRegister(duration, handled, failed, skipped)
	return &ConsumerMetrics{
		duration: duration,
		handled:  handled,
		failed:   failed,
		skipped:  skipped,
	}
}

// ObserveDuration records the handling duration for the event type.
func (c *ConsumerMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncHandled increments the handled counter for the event type.
func (c *ConsumerMetrics) IncHandled(eventType string) {
	if c == nil || c.handled == nil {
		return
	}
	c.handled.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (c *ConsumerMetrics) IncFailed(eventType string) {
	if c == nil || c.failed == nil {
		return
	}
	c.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncSkipped increments the skipped counter for the event type.
func (c *ConsumerMetrics) IncSkipped(eventType string) {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
