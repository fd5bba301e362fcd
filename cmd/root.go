package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/cache"
	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
	"github.com/KaramelBytes/datalens-cli/internal/logging"
)

var (
	// Global flags
	cfgFile    string
	debug      bool
	flagLogDir string

	// Loaded configuration
	cfg *cfgpkg.Global

	logCloser io.Closer
	reports   *cache.Cache[*analysis.Report]
)

var rootCmd = &cobra.Command{
	Use:   "datalens",
	Short: "DataLens CLI: deterministic analyst reports for CSV/XLSX datasets",
	Long: `DataLens profiles tabular datasets and turns them into analyst reports: data quality,
numeric and categorical profiles, correlations, segments, monthly trends, profit and loss,
alerts and recommendations. Questions such as "what happened in March?" are answered
from the same data without any model calls.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datalens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "directory for the rotating log file (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	if flagLogDir != "" {
		cfg.LogDir = flagLogDir
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
	closer, err := logging.Init(debug, cfg.LogDir)
	if err != nil {
		return err
	}
	logCloser = closer
	reports = cache.New[*analysis.Report](cfg.CacheCapacity, time.Duration(cfg.CacheTTLSec)*time.Second)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}
