package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"directory-console/internal/app"
)

func (c *cli) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an administrator",
		Long: `Sign in and store the session tokens in the token file.

The password is read from standard input when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				line, err := bufio.NewReader(c.stdin).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			s, err := c.app.Session.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			name := username
			if s.User != nil {
				name = s.User.DisplayName()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in administrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.requireSession(cmd)
			if errors.Is(err, app.ErrSignedOut) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			if err != nil {
				return err
			}

			u, _ := c.app.Session.User()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", u.DisplayName(), u.Username)
			fmt.Fprintf(out, "Role: %s\n", u.Role)
			if s, ok := c.app.Session.Current(); ok && !s.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Token expires: %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var email, token string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten administrator password",
		Long: `Request a reset link with --email. Then set the new password with
--token, the token from the link; the password is read from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case email != "" && token != "":
				return errors.New("use either --email or --token")
			case email != "":
				if err := c.app.API.RequestPasswordReset(cmd.Context(), email); err != nil {
					return err
				}
				fmt.Fprintln(out, "If the address is registered, a reset link has been sent.")
				return nil
			case token != "":
				line, err := bufio.NewReader(c.stdin).ReadString('\n')
				password := strings.TrimRight(line, "\r\n")
				if err != nil && password == "" {
					return errors.New("new password is required")
				}
				if len(password) < 6 {
					return errors.New("password must be at least 6 characters")
				}
				if err := c.app.API.ConfirmPasswordReset(cmd.Context(), token, password); err != nil {
					return err
				}
				fmt.Fprintln(out, "Password updated. Run `console login` to sign in.")
				return nil
			}
			return errors.New("--email or --token is required")
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email address")
	cmd.Flags().StringVar(&token, "token", "", "token from the reset link")
	return cmd
}
