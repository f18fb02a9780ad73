package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"directory-console/internal/app"
	"directory-console/internal/apperr"
	"directory-console/internal/view"
)

// errReported marks an error whose message has already been printed.
var errReported = errors.New("reported")

const sessionExpiredHint = "Your session has expired. Run `console login` to sign in again."

type cli struct {
	build func() (*app.App, error)
	stdin io.Reader
	app   *app.App
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "console",
		Short: "Directory admin console",
		Long: `Administer the member directory and send notifications.

Sign in with 'console login', then use the members, families,
buildings, masterdata, notifications and dashboard commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd)
		},
	}

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.resetPasswordCmd(),
		c.dashboardCmd(),
		c.membersCmd(),
		c.familiesCmd(),
		c.buildingsCmd(),
		c.masterDataCmd(),
		c.notificationsCmd(),
		c.themeCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	if c.app != nil {
		return nil
	}
	a, err := c.build()
	if err != nil {
		return err
	}
	c.app = a

	stderr := cmd.ErrOrStderr()
	a.Defer(a.Session.OnExpired(func() {
		fmt.Fprintln(stderr, sessionExpiredHint)
	}))
	return nil
}

func (c *cli) close() {
	if c.app == nil {
		return
	}
	if err := c.app.Close(); err != nil {
		c.app.Log.WithError(err).Warn("Shutdown incomplete")
	}
}

// requireSession restores the stored session or fails with a hint to log in.
func (c *cli) requireSession(cmd *cobra.Command) error {
	ok, err := c.app.Restore(cmd.Context())
	if err != nil {
		return err
	}
	if !ok {
		return app.ErrSignedOut
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func row(w io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprint(col)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

// show loads a view resource and prints whichever state it ends in.
// Populated data goes to populated; the other states print their message.
func show[T any](cmd *cobra.Command, res *view.Resource[T], populated func(io.Writer, T)) error {
	defer res.Close()
	out := cmd.OutOrStdout()

	fmt.Fprintln(cmd.ErrOrStderr(), view.Snapshot[T]{State: view.StateLoading}.Message())
	snap := res.Load(cmd.Context())

	switch snap.State {
	case view.StatePopulated:
		populated(out, snap.Data)
		return nil
	case view.StateEmpty:
		fmt.Fprintln(out, snap.Message())
		return nil
	case view.StateNotFound:
		fmt.Fprintln(out, snap.Message())
		return errReported
	}

	if apperr.KindOf(snap.Err) == apperr.KindSessionExpired {
		return snap.Err
	}
	if errors.Is(snap.Err, app.ErrSignedOut) {
		return snap.Err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Error:", snap.Message())
	if snap.Retryable() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Run the command again to retry.")
	}
	return errReported
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
