package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/dashd/internal/adapters/render/dashboard"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll every enabled source and redraw the dashboard until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := wireApp(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), dashboard.Options{Clear: !once})
			if err != nil {
				return err
			}

			if once {
				_, err := app.dashboard.RunOnce(ctx)
				return err
			}

			app.logger.Info("dashboard started", "sources", len(app.dashboard.Sections()), "config", app.configPath)
			return app.dashboard.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")

	return cmd
}
