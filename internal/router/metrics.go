package router

import "github.com/prometheus/client_golang/prometheus"

var (
	completionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poold",
		Subsystem: "router",
		Name:      "completions_total",
		Help:      "Completion requests by target and outcome.",
	}, []string{"target", "outcome"})

	fallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "poold",
		Subsystem: "router",
		Name:      "remote_fallbacks_total",
		Help:      "Local requests that degraded to the remote provider.",
	})
)

func init() {
	prometheus.MustRegister(completionsTotal, fallbacksTotal)
}
