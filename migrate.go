package main

import (
	"github.com/spf13/cobra"

	"edition-publisher/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStack()
		if err != nil {
			return err
		}
		defer s.close()

		if err := config.Migrate(s.db); err != nil {
			return err
		}
		s.log.Info().Str("driver", databaseDriver(s.cfg.DatabaseURL)).Msg("schema migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
