package main

import (
	"github.com/spf13/cobra"

	"bptracker/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.connect(cmd.Context(), false); err != nil {
				return err
			}
			return database.Migrate(a.db, a.logger)
		},
	}
}
