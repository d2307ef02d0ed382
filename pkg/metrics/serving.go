package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of the serve HTTP handler
	ServeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ad_serve_latency_seconds",
		Help:    "Latency of the ad serve handler",
		Buckets: prometheus.DefBuckets,
	})

	// Total number of serve requests received
	ServeRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ad_serve_requests_total",
		Help: "Total number of ad serve requests",
	})
)

func Init() {
	prometheus.MustRegister(
		ServeLatency,
		ServeRequests,
	)
}
