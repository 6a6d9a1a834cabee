package command

// root.go defines the root command for the yamdb binary.
// Configuration comes from the environment (and an optional .env file).

import (
	"fmt"
	"log/slog"
	"os"

	"yamdb/internal/config"
	"yamdb/internal/observability/logging"

	"github.com/spf13/cobra"
)

const serviceName = "yamdb"

var (
	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "yamdb",
	Short: "yamdb - reviews and ratings for books, films and music",
	Long: `yamdb serves the review platform API and carries its maintenance commands:
- serve: run the HTTP API
- migrate: create or update the database schema
- create-admin: create or promote a staff account`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logger = logging.NewLogger(logging.Config{
			ServiceName: serviceName,
			Environment: cfg.GoEnv,
			Level:       cfg.LogLevel,
			Format:      cfg.LogFormat,
		})
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}
