package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/datalens-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set DataLens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "workspaces_dir: %s\n", cfg.WorkspacesDir)
		fmt.Fprintf(out, "log_dir: %s\n", cfg.LogDir)
		fmt.Fprintf(out, "max_rows: %d\n", cfg.MaxRows)
		fmt.Fprintf(out, "date_sample_size: %d\n", cfg.DateSampleSize)
		fmt.Fprintf(out, "cache_capacity: %d\n", cfg.CacheCapacity)
		fmt.Fprintf(out, "cache_ttl_sec: %d\n", cfg.CacheTTLSec)
		fmt.Fprintf(out, "batch_workers: %d\n", cfg.BatchWorkers)
		fmt.Fprintf(out, "default_format: %s\n", cfg.DefaultFormat)
		fmt.Fprintf(out, "prompt_token_limit: %d\n", cfg.PromptTokenLimit)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		updated := *cfg
		atoi := func() (int, error) {
			n, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", key, err)
			}
			return n, nil
		}
		var err error
		switch key {
		case "workspaces_dir":
			updated.WorkspacesDir = val
		case "log_dir":
			updated.LogDir = val
		case "max_rows":
			updated.MaxRows, err = atoi()
		case "date_sample_size":
			updated.DateSampleSize, err = atoi()
		case "cache_capacity":
			updated.CacheCapacity, err = atoi()
		case "cache_ttl_sec":
			updated.CacheTTLSec, err = atoi()
		case "batch_workers":
			updated.BatchWorkers, err = atoi()
		case "default_format":
			updated.DefaultFormat = val
		case "prompt_token_limit":
			updated.PromptTokenLimit, err = atoi()
		default:
			return fmt.Errorf("unknown key: %s (valid: %v)", key, cfgpkg.Keys)
		}
		if err != nil {
			return err
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&updated, cfgFile); err != nil {
			return err
		}
		cfg = &updated
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
