// =============================================================================
// Ward Census Aggregator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (aggregator)
//   ├── serveCmd     (aggregator serve)
//   ├── aggregateCmd (aggregator aggregate)
//   └── versionCmd   (aggregator version)
//
// CONFIGURATION:
//   Before any subcommand runs the root command:
//   1. Loads a .env file from the working directory, if present
//   2. Loads the YAML configuration (--config)
//   3. Builds the zap logger (--verbose forces debug level)
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/ward-census-aggregator/internal/aggregator"
	"github.com/ginjaninja78/ward-census-aggregator/internal/config"
	"github.com/ginjaninja78/ward-census-aggregator/internal/logging"
	"github.com/ginjaninja78/ward-census-aggregator/internal/report"
	"github.com/ginjaninja78/ward-census-aggregator/internal/service"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// appConfig and logger are set by the root command before a subcommand runs.
var (
	appConfig *config.MainConfig
	logger    *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "aggregator",
	Short: "Ward Census Aggregator - Grouped patient counts from hospital report spreadsheets",
	Long: `Ward Census Aggregator reads hospital report spreadsheets (inpatient census,
deceased patients, transfers), works out which report it was given from its
column names, and counts distinct patients per ward and unit.

The layout of each report type lives in a table that can be replaced with
your own YAML file (report_types_file), so new report layouts need no code.

Example Usage:
  aggregator serve                            # Start the HTTP API
  aggregator aggregate ./exports              # Aggregate every workbook in a directory
  aggregator aggregate census.xlsx --format csv
  aggregator aggregate extract.xlsx --group-by Dept`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initialize(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (default is config.yaml)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initialize loads .env, the configuration and the logger. The default
// config file may be absent; one named with --config must exist.
func initialize(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	optional := !cmd.Flags().Changed("config")
	cfg, err := config.Load(cfgFile, optional)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, verbose)
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = log
	return nil
}

// newPipeline builds the aggregation pipeline from the loaded configuration.
func newPipeline(cfg *config.MainConfig, log *zap.Logger) (*service.Aggregator, error) {
	schemas, err := cfg.ReportSchemas()
	if err != nil {
		return nil, fmt.Errorf("failed to load report types: %w", err)
	}

	return service.New(
		report.NewRegistry(schemas),
		cfg.LoaderOptions(),
		aggregator.Options{SortGroups: cfg.SortGroups},
		log.Sugar(),
	), nil
}
