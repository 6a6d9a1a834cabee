package command

import (
	"yamdb/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.ConnectDB(cfg, logger)
		if err != nil {
			return err
		}
		defer closeDB(db)

		return database.Migrate(db, logger)
	},
}
