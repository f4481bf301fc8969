package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/almazgeobur/felix-portal/config"
	httpx "github.com/almazgeobur/felix-portal/internal/http"
	"github.com/almazgeobur/felix-portal/internal/service"
)

// HTTPServerConfig contains configuration for the portal HTTP server.
type HTTPServerConfig struct {
	HTTP     config.HTTPConfig
	Services httpx.RouterServices
	Logger   *slog.Logger
}

// StartHTTPServer binds the portal address and serves in the background.
// Returns the server for graceful shutdown and a channel that receives the
// serve error, if any.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, <-chan error, error) {
	if cfg == nil {
		return nil, nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Services.Logger == nil {
		cfg.Services.Logger = logger
	}

	handler := BuildHTTPHandler(cfg.Services, logger)

	// Guard against empty addr to avoid listening on Go default
	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", serveErr)
			errCh <- serveErr
		}
		close(errCh)
	}()

	return server, errCh, nil
}

// BuildHTTPHandler wraps the router in the standard middleware chain.
// Order: Recover -> RequestID -> Logging -> Router.
func BuildHTTPHandler(services httpx.RouterServices, logger *slog.Logger) http.Handler {
	h := httpx.NewRouter(services)
	h = httpx.Logging(logger)(h)
	h = httpx.RequestID()(h)
	h = httpx.Recover(logger)(h)
	return h
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Session *service.AuthSession
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server, then closes the
// session so in-flight identity calls cannot commit late results.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	err := cfg.Server.Shutdown(ctx)
	if cfg.Session != nil {
		cfg.Session.Close()
	}
	if err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
