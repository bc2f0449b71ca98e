package cmd

import (
	"artisan-marketplace/pkg/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	for _, direction := range []string{"up", "down"} {
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: "Run migrations " + direction,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := database.Migrate(config.Database, cmd.Name()); err != nil {
					return err
				}
				logger.Info("Migrations applied", zap.String("direction", cmd.Name()))
				return nil
			},
		})
	}

	return cmd
}
