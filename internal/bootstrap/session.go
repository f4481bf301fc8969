package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/almazgeobur/felix-portal/config"
	"github.com/almazgeobur/felix-portal/internal/adapters/identityhttp"
	"github.com/almazgeobur/felix-portal/internal/adapters/jwtclaims"
	"github.com/almazgeobur/felix-portal/internal/observability/metrics"
	"github.com/almazgeobur/felix-portal/internal/ports"
	"github.com/almazgeobur/felix-portal/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

var _ service.SessionRecorder = (*metrics.SessionMetrics)(nil)

// SessionDeps contains dependencies for BuildSession.
type SessionDeps struct {
	Config *config.AppConfig
	Tokens ports.TokenStore
	Extras SessionDepsExtras
}

// SessionDepsExtras holds optional BuildSession inputs.
type SessionDepsExtras struct {
	// Registry receives the session metrics. Nil disables them.
	Registry prometheus.Registerer
	// Transport overrides the identity client's round tripper.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// BuildSession wires the identity client, the expiry inspector and metrics
// into a new, not yet bootstrapped AuthSession.
func BuildSession(deps SessionDeps) (*service.AuthSession, error) {
	if deps.Config == nil {
		return nil, errors.New("session: config is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("session: token store is required")
	}
	cfg := deps.Config

	client, err := identityhttp.NewClient(identityhttp.Config{
		BaseURL:   cfg.Identity.BaseURL,
		Timeout:   cfg.Identity.Timeout,
		UserAgent: cfg.Identity.UserAgent,
		Transport: deps.Extras.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	extras := service.SessionExtras{Logger: deps.Extras.Logger}
	if cfg.Identity.InspectJWT {
		extras.Inspector = jwtclaims.ExpiryInspector{Leeway: cfg.Identity.ExpiryLeeway}
	}
	if deps.Extras.Registry != nil && cfg.Observability.Metrics.Enabled {
		extras.Recorder = metrics.NewSessionMetrics(metrics.Config{
			Namespace: cfg.Observability.Metrics.Namespace,
			Registry:  deps.Extras.Registry,
		})
	}

	return service.NewAuthSession(service.SessionOptions{
		Tokens: deps.Tokens,
		Client: client,
		Extras: extras,
	}), nil
}
