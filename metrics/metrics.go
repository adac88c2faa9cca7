// Package metrics provides Prometheus-compatible instrumentation for
// taskflow: flow/task storage metrics covering state transitions, backend
// round trips, and result-fetch outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the instrumentation seam Storage accepts via WithMetrics;
// ThreadSafeStorage reuses the Recorder of the Storage it wraps.
type Recorder interface {
	RecordTaskStateTransition(flowName, taskName, from, to string)
	RecordBackendRoundTrip(op string, d time.Duration, err error)
	RecordFetchMiss(name string)
	RecordLockWait(d time.Duration)
}

// Prometheus implements Recorder with a set of metrics namespaced
// "taskflow_", registered against the provided registry.
type Prometheus struct {
	stateTransitions *prometheus.CounterVec
	backendRoundTrip *prometheus.HistogramVec
	fetchMisses      *prometheus.CounterVec
	lockWait         prometheus.Histogram
}

// New creates and registers taskflow's metrics against registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a
// prometheus.NewRegistry() for test isolation.
func New(registry prometheus.Registerer) *Prometheus {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Prometheus{
		stateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskflow",
			Name:      "task_state_transitions_total",
			Help:      "Count of task state transitions recorded by Storage.SetTaskState",
		}, []string{"flow", "task", "from", "to"}),

		backendRoundTrip: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskflow",
			Name:      "backend_round_trip_seconds",
			Help:      "Duration of Backend.Connection calls issued by Storage",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"op", "status"}),

		fetchMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskflow",
			Name:      "fetch_misses_total",
			Help:      "Count of Storage.Fetch calls that found no result for the requested name",
		}, []string{"name"}),

		lockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskflow",
			Name:      "storage_lock_wait_seconds",
			Help:      "Time ThreadSafeStorage calls spent waiting to acquire the storage lock",
			Buckets:   []float64{.0001, .001, .01, .1, 1},
		}),
	}
}

// RecordTaskStateTransition records a single PENDING->RUNNING-style
// transition.
func (p *Prometheus) RecordTaskStateTransition(flowName, taskName, from, to string) {
	p.stateTransitions.WithLabelValues(flowName, taskName, from, to).Inc()
}

// RecordBackendRoundTrip records the latency and outcome of a single
// Connection call.
func (p *Prometheus) RecordBackendRoundTrip(op string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.backendRoundTrip.WithLabelValues(op, status).Observe(d.Seconds())
}

// RecordFetchMiss records a Fetch call that found no result for name.
func (p *Prometheus) RecordFetchMiss(name string) {
	p.fetchMisses.WithLabelValues(name).Inc()
}

// RecordLockWait records time spent waiting on ThreadSafeStorage's mutex.
func (p *Prometheus) RecordLockWait(d time.Duration) {
	p.lockWait.Observe(d.Seconds())
}

var _ Recorder = (*Prometheus)(nil)

// NoOp discards every measurement; the default when a caller doesn't wire a
// Recorder in.
type NoOp struct{}

func (NoOp) RecordTaskStateTransition(string, string, string, string) {}
func (NoOp) RecordBackendRoundTrip(string, time.Duration, error)      {}
func (NoOp) RecordFetchMiss(string)                                   {}
func (NoOp) RecordLockWait(time.Duration)                             {}

var _ Recorder = NoOp{}
