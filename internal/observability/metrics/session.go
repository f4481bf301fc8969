package metrics

import (
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	obserrors "github.com/almazgeobur/felix-portal/internal/observability/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Config configures the session metrics.
type Config struct {
	// Namespace defaults to "felix".
	Namespace string
	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Buckets defaults to prometheus.DefBuckets.
	Buckets []float64
}

// SessionMetrics records session lifecycle events as Prometheus metrics.
// It satisfies service.SessionRecorder.
type SessionMetrics struct {
	transitions *prometheus.CounterVec
	state       *prometheus.GaugeVec
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewSessionMetrics registers the session collectors.
func NewSessionMetrics(cfg Config) *SessionMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "felix"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}
	factory := promauto.With(cfg.Registry)

	m := &SessionMetrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by trigger.",
		}, []string{"from", "to", "trigger"}),

		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "session",
			Name:      "state",
			Help:      "1 for the current session state, 0 otherwise.",
		}, []string{"state"}),

		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session operations by result and error class.",
		}, []string{"op", "result", "error_class"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "session",
			Name:      "operation_duration_seconds",
			Help:      "Session operation latency, including time queued behind other transitions.",
			Buckets:   cfg.Buckets,
		}, []string{"op"}),
	}
	m.setState(domainauth.StateUninitialized)
	return m
}

// Transition counts a state change and moves the state gauge.
func (m *SessionMetrics) Transition(from, to domainauth.State, trigger string) {
	m.transitions.WithLabelValues(from.String(), to.String(), trigger).Inc()
	m.setState(to)
}

// Operation records the outcome and latency of a session operation.
func (m *SessionMetrics) Operation(op string, d time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(op, result, obserrors.Classify(err)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *SessionMetrics) setState(current domainauth.State) {
	for _, s := range []domainauth.State{
		domainauth.StateUninitialized,
		domainauth.StateLoading,
		domainauth.StateAuthenticated,
		domainauth.StateUnauthenticated,
	} {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
}
