package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for identify requests.
const (
	OutcomeSuccess       = "success"
	OutcomeValidation    = "validation_error"
	OutcomePoolError     = "pool_error"
	OutcomeResolverError = "resolver_error"
)

// Metrics provides observability for the identify module: request outcomes
// and the latency of the two blocking steps of a request.
type Metrics struct {
	Requests         *prometheus.CounterVec
	AcquireDuration  prometheus.Histogram
	ResolverDuration *prometheus.HistogramVec
}

// New creates the identify metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_gateway_identify_requests_total",
			Help: "Identify requests by outcome",
		}, []string{"outcome"}),
		AcquireDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "identity_gateway_pool_acquire_duration_seconds",
			Help:    "Time spent waiting for a pooled connection",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ResolverDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identity_gateway_resolver_duration_seconds",
			Help:    "Duration of identify_contact invocations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"mode"}),
	}
}

// IncrementOutcome counts one finished request.
func (m *Metrics) IncrementOutcome(outcome string) {
	m.Requests.WithLabelValues(outcome).Inc()
}

// ObserveAcquire records time spent in pool acquisition.
// Call with time.Now() taken before Acquire.
func (m *Metrics) ObserveAcquire(start time.Time) {
	m.AcquireDuration.Observe(time.Since(start).Seconds())
}

// ObserveResolver records the duration of one resolver call.
func (m *Metrics) ObserveResolver(mode string, start time.Time) {
	m.ResolverDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
