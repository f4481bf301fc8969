package metrics

import (
	"errors"
	"testing"
	"time"

	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMetrics_Transition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(Config{Registry: reg})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("uninitialized")))

	m.Transition(domainauth.StateUninitialized, domainauth.StateLoading, "bootstrap")
	m.Transition(domainauth.StateLoading, domainauth.StateAuthenticated, "bootstrap")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("loading", "authenticated", "bootstrap")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("uninitialized")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("loading")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("authenticated")))
}

func TestSessionMetrics_Operation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(Config{Registry: reg, Namespace: "test"})

	m.Operation("login", 10*time.Millisecond, nil)
	m.Operation("login", 20*time.Millisecond, &domainauth.Error{Kind: domainauth.KindInvalidCredentials})
	m.Operation("login", 5*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("login", ResultSuccess, "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("login", ResultError, "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("login", ResultError, "errors_errorstring")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "test_session_operation_duration_seconds" {
			found = true
			require.Len(t, f.GetMetric(), 1)
			assert.Equal(t, uint64(3), f.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}

func TestNewSessionMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSessionMetrics(Config{Registry: reg})
	assert.Panics(t, func() { NewSessionMetrics(Config{Registry: reg}) })
}
