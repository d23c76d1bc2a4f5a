package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		paymentVerifyMs,
		creditsGranted,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment transitions by method and status.",
		},
		[]string{"method", "status"},
	)

	paymentVerifyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_ms",
			Help:    "Chain verification latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"method"},
	)

	creditsGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_credits_granted_total",
			Help: "Purchased analysis credits granted via confirmed payments.",
		},
	)
)

func IncPayment(method, status string) {
	paymentsTotal.WithLabelValues(norm(method), norm(status)).Inc()
}

func ObservePaymentVerify(method string, ms int) {
	paymentVerifyMs.WithLabelValues(norm(method)).Observe(float64(ms))
}

func AddCreditsGranted(n int) { creditsGranted.Add(float64(n)) }
