package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ComplianceEvaluations counts weight evaluations by resulting status
	ComplianceEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_compliance_evaluations_total",
			Help: "Total number of weight compliance evaluations.",
		},
		[]string{"status"},
	)

	// GeofenceViolations counts recorded zone crossings
	GeofenceViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_geofence_violations_total",
			Help: "Total number of geofence violations recorded.",
		},
		[]string{"type"}, // entry/exit
	)

	// GeofenceAlerts counts alerts handed to subscribers
	GeofenceAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_geofence_alerts_total",
			Help: "Total number of geofence alerts dispatched.",
		},
	)

	// ETACalculations counts ETA requests by outcome
	ETACalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_eta_calculations_total",
			Help: "Total number of ETA calculations.",
		},
		[]string{"result"}, // success/failed
	)

	// ETADuration records how long the ETA pipeline takes
	ETADuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_eta_duration_seconds",
			Help:    "Latency of ETA calculations including condition lookups.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ComplianceEvaluations)
	prometheus.MustRegister(GeofenceViolations)
	prometheus.MustRegister(GeofenceAlerts)
	prometheus.MustRegister(ETACalculations)
	prometheus.MustRegister(ETADuration)
}
