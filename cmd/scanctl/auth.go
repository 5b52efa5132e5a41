package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resumematch/scanner-web/internal/services"
)

func registerCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.password(cmd)
			if err != nil {
				return err
			}

			message, err := c.tab.Accounts.Register(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s. Sign in with `scanctl login %s`.\n", message, args[0])
			return nil
		},
	}
	cmd.Flags().String("password", "", "password (read from stdin when empty)")
	return cmd
}

func loginCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in for this terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.password(cmd)
			if err != nil {
				return err
			}

			if err := c.tab.Auth.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}

			snap := c.tab.Auth.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", snap.User.Username)
			return nil
		},
	}
	cmd.Flags().String("password", "", "password (read from stdin when empty)")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session of this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.tab.Auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func whoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := c.tab.Auth.Snapshot()
			info := services.DescribeToken(snap.Token)

			if c.wantJSON() {
				return c.printJSON(cmd.OutOrStdout(), map[string]any{
					"state":      snap.State,
					"user":       snap.User,
					"subject":    info.Subject,
					"expires_at": info.ExpiresAt,
				})
			}

			out := cmd.OutOrStdout()
			if !snap.IsAuthenticated() {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}

			name := "(unknown)"
			if snap.User != nil {
				name = snap.User.Username
				if snap.User.ID != "" {
					name = fmt.Sprintf("%s (id %s)", name, snap.User.ID)
				}
			}
			fmt.Fprintf(out, "Signed in as %s\n", name)
			if info.ExpiresAt != nil {
				fmt.Fprintf(out, "Token expires %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}
