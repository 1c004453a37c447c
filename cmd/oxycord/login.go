package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/oxycord"
	"pkt.systems/oxycord/internal/appconfig"
	"pkt.systems/pslog"
)

func newLoginCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in, or reuse the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, *cfgPath)
		},
	}
}

func runLogin(cmd *cobra.Command, cfgPath string) error {
	app, err := newApp(cmd, cfgPath)
	if err != nil {
		return err
	}
	return app.Login(cmd.Context())
}

func newApp(cmd *cobra.Command, cfgPath string) (*oxycord.App, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return oxycord.New(oxycord.ConfigFromFile(cfg), oxycord.Deps{
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
		Logger: pslog.Ctx(cmd.Context()),
	})
}
