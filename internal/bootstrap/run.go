package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/almazgeobur/felix-portal/config"
	httpx "github.com/almazgeobur/felix-portal/internal/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PortalConfig contains what RunPortal needs.
type PortalConfig struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// RunPortal opens the token store, starts the session bootstrap and serves
// the portal until ctx is cancelled, a shutdown signal arrives or the server
// fails.
func RunPortal(ctx context.Context, cfg *PortalConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("portal config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	tokens, closeTokens, err := BuildTokenStore(ctx, TokenStoreDeps{Config: appCfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeTokens(); cerr != nil {
			logger.Error("close token store failed", "error", cerr)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	session, err := BuildSession(SessionDeps{
		Config: appCfg,
		Tokens: tokens,
		Extras: SessionDepsExtras{Registry: registry, Logger: logger},
	})
	if err != nil {
		return err
	}
	session.Start(ctx)

	services := httpx.RouterServices{Session: session, Logger: logger}
	if appCfg.Observability.Metrics.Enabled {
		services.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	server, errCh, err := StartHTTPServer(&HTTPServerConfig{
		HTTP:     appCfg.HTTP,
		Services: services,
		Logger:   logger,
	})
	if err != nil {
		session.Close()
		return fmt.Errorf("start http server: %w", err)
	}

	return waitForShutdown(ctx, shutdownState{
		errCh:   errCh,
		cfg:     appCfg.HTTP,
		logger:  logger,
		stopCfg: ShutdownConfig{Server: server, Session: session, Logger: logger},
	})
}

const shutdownWaitTimeout = 10 * time.Second

type shutdownState struct {
	errCh   <-chan error
	cfg     config.HTTPConfig
	logger  *slog.Logger
	stopCfg ShutdownConfig
}

// waitForShutdown waits for a shutdown signal, context cancellation or server error.
func waitForShutdown(ctx context.Context, st shutdownState) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case <-quit:
		st.logger.Info("shutting down portal...")
	case <-ctx.Done():
		st.logger.Info("shutting down portal...", "reason", ctx.Err())
	case err, ok := <-st.errCh:
		if ok {
			serveErr = err
		}
	}

	timeout := st.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	st.stopCfg.Context = shutdownCtx
	if err := ShutdownHTTPServer(st.stopCfg); err != nil {
		if serveErr != nil {
			return errors.Join(serveErr, err)
		}
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return serveErr
}
