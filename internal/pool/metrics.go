package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	launchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poold",
			Subsystem: "pool",
			Name:      "launches_total",
			Help:      "Instance launches by outcome",
		},
		[]string{"outcome"},
	)

	instancesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "poold",
			Subsystem: "pool",
			Name:      "instances",
			Help:      "Currently registered server instances",
		},
	)

	teardownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poold",
			Subsystem: "pool",
			Name:      "teardowns_total",
			Help:      "Instance teardowns by reason",
		},
		[]string{"reason"},
	)

	unhealthyMarksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "poold",
			Subsystem: "pool",
			Name:      "unhealthy_marks_total",
			Help:      "Advisory unhealthy marks reported by request routing",
		},
	)
)

func init() {
	prometheus.MustRegister(launchesTotal, instancesGauge, teardownsTotal, unhealthyMarksTotal)
}
