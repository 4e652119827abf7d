package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resultados posibles de una operación de autenticación.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AuthOperations cuenta signup, login, forgot, reset, update y guard por resultado.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "forum_auth_operations_total",
		Help: "Total number of authentication operations",
	},
	[]string{"operation", "outcome"},
)

var AuthDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "forum_auth_operation_duration_seconds",
		Help:    "Authentication operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics debe llamarse una vez al arrancar; entra en pánico si ya estaban registradas.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(AuthDuration)
}

func RecordAuth(operation, outcome string, duration time.Duration) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
	AuthDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
