package cmd

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "dashd",
		Short:         "dashd: a small dashboard fed by flaky sources",
		Long:          "dashd polls a Pi-hole, OpenWeatherMap, a site view counter and NTP servers, and keeps showing the last good value of each when they misbehave.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $HOME/.config/dashd/dashd.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(opts),
		newRefreshCmd(opts),
		newSourcesCmd(opts),
		newConfigCmd(opts),
		newSecretCmd(opts),
	)

	return rootCmd
}
