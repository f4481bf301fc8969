package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/almazgeobur/felix-portal/config"
	"github.com/almazgeobur/felix-portal/internal/bootstrap"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// cliApp carries what every command shares. Tests swap the loader and streams.
type cliApp struct {
	loadConfig func() (config.AppConfig, error)
	cfg        config.AppConfig
	logger     *slog.Logger
	logOut     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cliApp{loadConfig: bootstrap.LoadConfig, logOut: os.Stderr}
	if err := newRootCmd(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1) //nolint:forbidigo // CLI must propagate command failure to callers
	}
}

func newRootCmd(app *cliApp) *cobra.Command {
	root := &cobra.Command{
		Use:   "felix",
		Short: "Felix portal session client",
		Long: `Felix signs this machine into the Almaz-Geobur identity service and
serves the portal, routing each user to the dashboard for their role.

Configuration is read from the environment (and a .env file when present).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := app.loadConfig()
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.logger = bootstrap.NewLogger(app.logOut, cfg.Observability.Logging)
			slog.SetDefault(app.logger)
			return nil
		},
	}

	root.AddCommand(
		serveCmd(app),
		loginCmd(app),
		logoutCmd(app),
		whoamiCmd(app),
		refreshCmd(app),
		routeCmd(app),
		devIdentityCmd(app),
		versionCmd(),
	)
	return root
}
