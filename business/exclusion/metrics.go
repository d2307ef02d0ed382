package exclusion

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	exclusionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_exclusions_total",
			Help: "Count of candidate ads excluded, by rule.",
		},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(exclusionsTotal)
}
