package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/litemigrate/internal/config"
	"github.com/dbsmedya/litemigrate/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile      string
	logLevel     string
	logFormat    string
	sourcePath   string
	targetDSN    string
	targetDriver string
	workers      int
	skipVerify   bool
)

var rootCmd = &cobra.Command{
	Use:   "litemigrate",
	Short: "SQLite to PostgreSQL/MySQL migrator",
	Long: `A CLI tool that moves a SQLite database into PostgreSQL or MySQL:
schema first, then rows, then foreign keys, then auto-increment counters.

Features:
  - CREATE TABLE translation (SERIAL / AUTO_INCREMENT, DATETIME, booleans)
  - Row-by-row copy where one bad row never aborts a table
  - Foreign keys added after the data load, so cyclic schemas just work
  - Sequence resynchronisation past the copied ids
  - Idempotent reruns against a partially migrated target`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigFile,
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Connection overrides
	rootCmd.PersistentFlags().StringVarP(&sourcePath, "source", "s", "",
		"Override path of the source SQLite database")
	rootCmd.PersistentFlags().StringVar(&targetDSN, "target-dsn", "",
		"Override target DSN")
	rootCmd.PersistentFlags().StringVar(&targetDriver, "target-driver", "",
		"Override target driver (postgres, mysql)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0,
		"Override number of tables processed concurrently per stage")
	rootCmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip row count verification after the run")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.Overrides {
	return config.Overrides{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		SourcePath:   sourcePath,
		TargetDSN:    targetDSN,
		TargetDriver: targetDriver,
		Workers:      workers,
		SkipVerify:   skipVerify,
	}
}

// loadConfig loads the config file and applies CLI overrides. With validate
// set, the whole configuration must pass validation.
func loadConfig(validate bool) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyOverrides(GetCLIOverrides())

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

// setup loads and validates the configuration and builds the logger.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
