package main

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/calendar"
	"github.com/opensource-finance/cropadvisor/internal/catalog"
	"github.com/opensource-finance/cropadvisor/internal/config"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/rules"
)

// Version information (set via ldflags)
//
//nolint:gochecknoglobals // build metadata
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var catalogPath string

//nolint:gochecknoglobals // Cobra boilerplate
var jsonOutput bool

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "cropctl",
	Short: "Recommend crops and plan cultivation calendars",
	Long: `cropctl ranks the crops of a catalog for a farmer's field and season,
prints cultivation calendars, manages the catalog database and benchmarks a
running cropadvisor server.

Configuration is read the same way as the server: defaults, then config.yaml
(or $CROPADVISOR_CONFIG), then CROPADVISOR_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml or $CROPADVISOR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "crop catalog JSON file (overrides catalog.path)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// loadConfig resolves the configuration and applies the --catalog override.
func loadConfig() (cfg *domain.Config, err error) {
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return cfg, err
	}

	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	return cfg, err
}

// newAdvisor builds an in-process advisor over the JSON catalog file.
func newAdvisor(cfg *domain.Config) (adv *advisor.Advisor, err error) {
	var engine *rules.Engine
	engine, err = rules.NewEngine(cfg.Scoring)
	if err != nil {
		err = errors.Wrap(err, "failed to build rule engine")
		return adv, err
	}

	adv = advisor.New(catalog.NewFileSource(cfg.Catalog.Path), engine, calendar.NewGenerator())
	return adv, err
}
