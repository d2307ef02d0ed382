package serving

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AdsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ads_served_total",
			Help: "Count of ads served, by ad unit type.",
		},
		[]string{"ad_type"},
	)

	ServeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_serve_failures_total",
			Help: "Count of serving attempts that ended without an ad, by ad unit type and reason.",
		},
		[]string{"ad_type", "reason"},
	)

	ExplorationPicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ad_exploration_picks_total",
			Help: "How many times the epsilon-greedy orchestrator picked a random eligible ad.",
		},
	)

	AdEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ad_events_total",
			Help: "Count of recorded ad events by ad type, confirmation type and segment.",
		},
		[]string{"ad_type", "confirmation_type", "segment"},
	)
)

func init() {
	prometheus.MustRegister(
		AdsServedTotal,
		ServeFailuresTotal,
		ExplorationPicksTotal,
		AdEventsTotal,
	)
}
