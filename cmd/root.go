package cmd

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/osmpoi/internal/config"
	"github.com/wegman-software/osmpoi/internal/logger"
)

var (
	cfg             = config.DefaultConfig()
	verbose         bool
	logFile         string
	metricsInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "osmpoi",
	Short: "Extract restaurants, rail stations and bus stops from OSM data",
	Long: `osmpoi classifies OSM entities into points of interest and exports them
as CSV and JSON (optionally Parquet and PostGIS) with a statistics report.

Features:
  - Reads .osm.pbf (parallel decoding) and .osm/.xml files
  - Fixed priority classification: restaurant, rail station, bus stop
  - Deterministic output order, identical across worker counts
  - Tag filter rules and Lua accept scripts
  - All-or-nothing artifact writes`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg.Verbose = verbose
		cfg.LogFile = logFile
		cfg.MetricsInterval = metricsInterval

		// Initialize logger with optional file output
		if logFile != "" {
			logger.InitWithFile(verbose, logFile)
		} else {
			logger.Init(verbose)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of extraction workers (output order is unaffected)")
	rootCmd.PersistentFlags().StringVarP(&cfg.ConfigFile, "config", "c", "", "YAML run file (subtypes, tracked fields, filter rules)")

	// Logging and metrics flags
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&metricsInterval, "metrics-interval", 0, "Interval for system metrics logging (e.g., 10s, 1m), 0 disables")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
