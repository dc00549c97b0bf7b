package main

import (
	"github.com/spf13/cobra"

	"github.com/greyfort/eventscout/internal/config"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "eventscout",
		Short:         "Discover upcoming business events from the open web",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newDiscoverCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
