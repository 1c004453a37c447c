package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/oxycord"
	"pkt.systems/oxycord/schema"
	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	err := root.ExecuteContext(ctx)
	code := oxycord.ExitCode(err)
	switch {
	case err == nil:
	case code == schema.ExitOK:
		if errors.Is(err, schema.ErrAbandoned) {
			pslog.Ctx(ctx).Info("oxycord login abandoned")
		}
	default:
		pslog.Ctx(ctx).With("err", err).Error("oxycord command failed")
	}
	return code
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "oxycord",
		Short:         "Sign in to a Discord account from the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newLoginCmd(&cfgPath))
	root.AddCommand(newStatusCmd(&cfgPath))
	root.AddCommand(newLogoutCmd(&cfgPath))
	root.AddCommand(newConfigCmd(&cfgPath))
	root.AddCommand(newVersionCmd())

	return root
}
