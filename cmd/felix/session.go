package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/almazgeobur/felix-portal/internal/bootstrap"
	domainauth "github.com/almazgeobur/felix-portal/internal/domain/auth"
	"github.com/almazgeobur/felix-portal/internal/service"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in")

// withSession opens the configured token store, resolves the session from it
// and hands it to fn. The session is closed afterwards.
func (a *cliApp) withSession(ctx context.Context, fn func(*service.AuthSession) error) error {
	tokens, closeTokens, err := bootstrap.BuildTokenStore(ctx, bootstrap.TokenStoreDeps{Config: &a.cfg, Logger: a.logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeTokens(); cerr != nil {
			a.logger.Warn("close token store failed", "error", cerr)
		}
	}()

	sess, err := bootstrap.BuildSession(bootstrap.SessionDeps{
		Config: &a.cfg,
		Tokens: tokens,
		Extras: bootstrap.SessionDepsExtras{Logger: a.logger},
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.Bootstrap(ctx)
	return fn(sess)
}

func loginCmd(app *cliApp) *cobra.Command {
	var (
		username      string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if passwordStdin {
				if password != "" {
					return errors.New("--password and --password-stdin are mutually exclusive")
				}
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			return app.withSession(cmd.Context(), func(sess *service.AuthSession) error {
				id, err := sess.Login(cmd.Context(), username, password)
				if err != nil {
					return describeError(err)
				}
				out := cmd.OutOrStdout()
				_, err = fmt.Fprintf(out, "Signed in as %s (%s)\n", id.DisplayName(), id.Role)
				if err != nil {
					return err
				}
				return printDestination(out, id)
			})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func logoutCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(sess *service.AuthSession) error {
				sess.Logout(cmd.Context())
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return err
			})
		},
	}
}

func whoamiCmd(app *cliApp) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(sess *service.AuthSession) error {
				snap := sess.Snapshot()
				if !snap.IsAuthenticated() {
					return errNotSignedIn
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(snap.Identity)
				}
				return printIdentity(cmd.OutOrStdout(), snap.Identity)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the identity as JSON")
	return cmd
}

func refreshCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the identity for the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(sess *service.AuthSession) error {
				if !sess.Snapshot().IsAuthenticated() {
					return errNotSignedIn
				}
				id, err := sess.RefreshIdentity(cmd.Context())
				if err != nil {
					return describeError(err)
				}
				return printIdentity(cmd.OutOrStdout(), id)
			})
		},
	}
}

func routeCmd(app *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "route",
		Short: "Print the landing page for the signed-in role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withSession(cmd.Context(), func(sess *service.AuthSession) error {
				snap := sess.Snapshot()
				if !snap.IsAuthenticated() {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), domainauth.DestinationLogin)
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), domainauth.Route(snap.Identity))
				return err
			})
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printIdentity(w io.Writer, id domainauth.Identity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", fmt.Sprint(id.ID)},
		{"Username", id.Username},
		{"Name", id.DisplayName()},
		{"Email", id.Email},
		{"Role", string(id.Role)},
		{"Active", fmt.Sprint(id.IsActive)},
		{"Landing", string(domainauth.Route(id))},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printDestination(w io.Writer, id domainauth.Identity) error {
	dest := domainauth.Route(id)
	if dest == domainauth.DestinationLogin {
		_, err := fmt.Fprintf(w, "Role %q has no landing page in the portal\n", id.Role)
		return err
	}
	_, err := fmt.Fprintf(w, "Landing: %s\n", dest)
	return err
}

// describeError turns session errors into short CLI messages.
func describeError(err error) error {
	switch domainauth.KindOf(err) {
	case domainauth.KindInvalidCredentials:
		return fmt.Errorf("incorrect username or password: %w", err)
	case domainauth.KindNetwork:
		return fmt.Errorf("identity service unreachable: %w", err)
	case domainauth.KindTokenInvalid:
		return fmt.Errorf("session expired, sign in again: %w", err)
	default:
		return err
	}
}
