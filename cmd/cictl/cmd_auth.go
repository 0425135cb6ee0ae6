package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"central-illustration/internal/session"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				a.printf("Username: ")
				u, err := a.readLine()
				if err != nil {
					return err
				}
				username = u
			}
			if password == "" {
				a.printf("Password: ")
				p, err := a.readLine()
				if err != nil {
					return err
				}
				password = p
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			st, err := a.sess.Login(ctx, a.api, username, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			a.printf("Logged in as %s (%s)\n", st.Username, st.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sess.Logout(); err != nil {
				return err
			}
			a.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.sess.LoggedIn() {
				return session.ErrNotLoggedIn
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			me, err := a.api.Me(ctx)
			if err != nil {
				return errors.Join(errors.New("stored token was rejected, run cictl login"), err)
			}
			return a.render(me, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "USERNAME\tEMAIL\tROLE\n")
				fmt.Fprintf(w, "%s\t%s\t%s\n", me.Username, me.Email, me.Role)
			})
		},
	}
}
