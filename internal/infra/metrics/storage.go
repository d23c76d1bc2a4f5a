package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		imagesStored,
		imagesSwept,
		storedBytes,
	)
}

var (
	imagesStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_images_stored_total",
			Help: "Chart images written to the store, by backend.",
		},
		[]string{"backend"},
	)

	imagesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chart_images_swept_total",
			Help: "Expired chart images removed by the retention sweeper.",
		},
	)

	storedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_image_bytes_total",
			Help: "Total bytes of stored chart images, by backend.",
		},
		[]string{"backend"},
	)
)

func IncImageStored(backend string, size int) {
	imagesStored.WithLabelValues(norm(backend)).Inc()
	storedBytes.WithLabelValues(norm(backend)).Add(float64(size))
}

func AddImagesSwept(n int) { imagesSwept.Add(float64(n)) }
