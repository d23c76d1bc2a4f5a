package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		visionCalls,
		visionLatencyMs,
		visionRetries,
		visionConfidence,
	)
}

var (
	visionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vision_calls_total",
			Help: "Vision API calls per model and outcome.",
		},
		[]string{"model", "success"},
	)

	visionLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vision_call_latency_ms",
			Help:    "Vision call latency distribution in milliseconds.",
			Buckets: []float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000},
		},
		[]string{"model"},
	)

	visionRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vision_call_retries_total",
			Help: "Retried vision API attempts.",
		},
	)

	visionConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vision_confidence",
			Help:    "Reported AI confidence per completed analysis.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ObserveVisionCall(model string, latencyMs int, success bool) {
	visionCalls.WithLabelValues(norm(model), strconv.FormatBool(success)).Inc()
	visionLatencyMs.WithLabelValues(norm(model)).Observe(float64(latencyMs))
}

func IncVisionRetry() { visionRetries.Inc() }

func ObserveConfidence(c float64) { visionConfidence.Observe(c) }
