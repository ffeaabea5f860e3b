package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/repwatch/repwatch/internal/config"
	"github.com/repwatch/repwatch/internal/reports"
	"github.com/repwatch/repwatch/internal/storage"
)

var (
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "repwatch",
	Short: "repwatch - brand mention monitoring and moderation",
	Long: `repwatch collects brand mentions from social and web sources,
scores their sentiment, extracts keywords, and tracks moderation
reports filed against individual posts.

Run "repwatch serve" for the long-running service or "repwatch run"
for a single monitoring pass.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			logrus.Debug("No .env file found, using environment variables")
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logrus.SetLevel(logrus.InfoLevel)
		if verbose || cfg.Debug {
			logrus.SetLevel(logrus.DebugLevel)
		}
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reportStatusCmd)
	rootCmd.AddCommand(reportsCmd)
}

// buildStorage selects the snapshot backend from configuration.
func buildStorage(cfg *config.Config) (storage.Interface, error) {
	switch cfg.StorageBackend {
	case "azure":
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	default:
		return storage.NewFileStorage(cfg.DataDir)
	}
}

// buildReportManager selects the report store and wraps it in a manager.
func buildReportManager(cfg *config.Config, backend storage.Interface) (*reports.Manager, error) {
	var store reports.Store
	var err error

	switch cfg.ReportStore {
	case "sqlite":
		store, err = reports.NewSQLiteStore(cfg.ReportDB)
	default:
		store, err = reports.NewJSONStore(backend, cfg.ReportFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	return reports.NewManager(store, cfg.ReportDedupWindow), nil
}
