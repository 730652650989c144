package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Args:  cobra.NoArgs,
		Short: "Create tables and indexes that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, be, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer be.close()

			if err := be.migrate(cmd.Context()); err != nil {
				return err
			}

			logger.With(map[string]any{"command": "migrate"}).
				Info("migrations applied on %s store", cfg.Store.Driver)
			return nil
		},
	}
}
