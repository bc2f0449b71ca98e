package cmd

import (
	"fmt"
	"log"
	"os"

	"artisan-marketplace/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	config *utils.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "Artisan marketplace booking and settlement backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = utils.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, err = utils.InitLogger(config.App.LogPath, config.App.Debug)
		if err != nil {
			log.Printf("Failed to init logger: %v. Using standard log.", err)
			logger, _ = zap.NewProduction()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepSubscriptionsCmd())
	rootCmd.AddCommand(reconcileRefundsCmd())
}

// Execute runs the CLI. Without a subcommand it serves HTTP.
func Execute() {
	if len(os.Args) == 1 {
		rootCmd.SetArgs([]string{"serve"})
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
