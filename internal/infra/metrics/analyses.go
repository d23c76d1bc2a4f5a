package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		analysesTotal,
		analysisPipelineMs,
		quotaDenials,
		imagesRejected,
	)
}

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_analyses_total",
			Help: "Completed analysis runs by outcome (completed/failed).",
		},
		[]string{"outcome"},
	)

	analysisPipelineMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_pipeline_ms",
			Help:    "End-to-end pipeline duration from receipt to reply, ms.",
			Buckets: []float64{500, 1000, 2000, 5000, 10000, 20000, 40000, 80000},
		},
	)

	quotaDenials = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_denials_total",
			Help: "Analysis requests denied for exhausted quota.",
		},
	)

	imagesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "images_rejected_total",
			Help: "Uploaded images rejected before analysis, by reason.",
		},
		[]string{"reason"},
	)
)

func IncAnalysis(outcome string)     { analysesTotal.WithLabelValues(norm(outcome)).Inc() }
func ObservePipeline(ms int)         { analysisPipelineMs.Observe(float64(ms)) }
func IncQuotaDenied()                { quotaDenials.Inc() }
func IncImageRejected(reason string) { imagesRejected.WithLabelValues(norm(reason)).Inc() }
