package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CloseMetrics records metadata for batch close operations.
type CloseMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewCloseMetrics registers the close metrics on the provided registerer.
func NewCloseMetrics(reg prometheus.Registerer) *CloseMetrics {
	if reg == nil {
		return &CloseMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batch_close_duration_seconds",
		Help:    "Duration of batch close transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"batch_type"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_close_success",
		Help: "Successful batch close operations.",
	}, []string{"batch_type"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_close_failure",
		Help: "Rejected or failed batch close operations.",
	}, []string{"batch_type", "reason"})
	reg.MustRegister(duration, success, failure)
	return &CloseMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveDuration records the duration of a close attempt.
func (c *CloseMetrics) ObserveDuration(batchType string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(batchType)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter.
func (c *CloseMetrics) IncSuccess(batchType string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(batchType)).Inc()
}

// IncFailure increments the failure counter for the given reason.
func (c *CloseMetrics) IncFailure(batchType, reason string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(batchType), normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
