package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		tgUpdates,
		tgSendErrors,
		rateLimited,
	)
}

var (
	tgUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Processed Telegram updates by kind (command/photo/text).",
		},
		[]string{"kind"},
	)

	tgSendErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_send_errors_total",
			Help: "Failed outbound Telegram sends.",
		},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limited_total",
			Help: "Updates dropped by the per-user rate limiter.",
		},
	)
)

func IncUpdate(kind string) { tgUpdates.WithLabelValues(norm(kind)).Inc() }
func IncSendError()         { tgSendErrors.Inc() }
func IncRateLimited()       { rateLimited.Inc() }
