package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/almazgeobur/felix-portal/internal/bootstrap"
	"github.com/spf13/cobra"
)

func serveCmd(app *cliApp) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portal",
		Long: `Serve the portal on HTTP_ADDR. The session is restored from the token
store in the background; protected pages answer 503 until it resolves.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				app.cfg.HTTP.Addr = addr
			}
			app.logger.InfoContext(cmd.Context(), "starting felix portal",
				"version", version,
				"identity", app.cfg.Identity.BaseURL,
				"token_store", string(app.cfg.TokenStore.Backend),
			)
			return bootstrap.RunPortal(cmd.Context(), &bootstrap.PortalConfig{Config: &app.cfg, Logger: app.logger})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Override HTTP_ADDR")
	return cmd
}

func devIdentityCmd(app *cliApp) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "dev-identity",
		Short: "Run a local identity service for development",
		Long: `Run a local stand-in for the identity service with the users from
DEV_IDENTITY_USERS ("username:password:role" entries separated by ";").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				app.cfg.DevIdentity.Addr = addr
			}
			srv, err := bootstrap.BuildDevIdentity(app.cfg.DevIdentity, app.logger)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:              app.cfg.DevIdentity.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				app.logger.Info("starting dev identity service", "addr", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err = <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("dev identity server: %w", err)
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Override DEV_IDENTITY_ADDR")
	return cmd
}
