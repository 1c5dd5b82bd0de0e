package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/apiclient"
	"github.com/NycolasFelipe/uninter-gestao-eventos/core/routes"
)

func (cli *commandLine) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in; the password is prompted next",
		Args:        cobra.NoArgs,
		Annotations: withRoute(routes.LoginPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			if core.CleanString(email) == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword(cmd)
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}

			state, err := cli.session.Login(cmd.Context(), email, pwd)
			if err != nil {
				var herr *apiclient.HTTPError
				if errors.As(err, &herr) {
					return herr
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", state.User.DisplayName())
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	return cmd
}

func (cli *commandLine) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Log out and forget the stored token",
		Args:        cobra.NoArgs,
		Annotations: withRoute(routes.LoginPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.session.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}

func (cli *commandLine) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "whoami",
		Short:       "Show the logged in user",
		Args:        cobra.NoArgs,
		Annotations: withRoute(routes.LandingPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.print(cmd, cli.session.State().User)
		},
	}
}
