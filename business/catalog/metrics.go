package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	invalidCreativesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_invalid_creatives_total",
			Help: "Count of malformed catalog entries skipped during snapshot builds.",
		},
	)
)

func init() {
	prometheus.MustRegister(invalidCreativesTotal)
}
