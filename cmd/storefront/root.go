package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the storefront command tree
func NewRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "E-commerce backend with JWT sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (yaml, json or toml)")

	rootCmd.AddCommand(
		newServeCommand(&configPath),
		newMigrateCommand(&configPath),
		newPromoteCommand(&configPath),
	)

	return rootCmd
}
