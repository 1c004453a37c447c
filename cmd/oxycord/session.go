package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a session is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			ok, err := app.Status()
			if err != nil {
				return err
			}
			state := "none"
			if ok {
				state = "stored"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "session: %s\n", state)
			return err
		},
	}
}

func newLogoutCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := app.Logout(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
			return err
		},
	}
}
