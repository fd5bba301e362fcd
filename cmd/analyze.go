package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	anaWorkspace string
	anaDataset   string
	anaQuestion  string
	anaFormat    string
	anaOutput    string
	anaRefresh   bool
	anaIngest    ingestFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Build an analyst report for a CSV/TSV/XLSX file or a registered dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 1) == (anaDataset != "") {
			return fmt.Errorf("pass exactly one of a file argument or --dataset")
		}
		format := resolveFormat(anaFormat)
		if _, ok := formatExtensions[format]; !ok {
			return fmt.Errorf("unsupported --format: %s (use json|markdown|html|prompt)", format)
		}
		opt, err := anaIngest.options()
		if err != nil {
			return err
		}

		var src source
		if anaDataset != "" {
			w, err := openWorkspace(anaWorkspace)
			if err != nil {
				return err
			}
			d, err := w.Find(anaDataset)
			if err != nil {
				return err
			}
			if anaRefresh {
				changed, err := w.Refresh(d, opt)
				if err != nil {
					return err
				}
				if changed {
					if err := w.Save(); err != nil {
						return err
					}
				}
			}
			src = datasetSource(d, opt)
		} else {
			src, err = fileSource(args[0], opt)
			if err != nil {
				return err
			}
		}

		rep, err := buildReport(cmd.Context(), src, anaQuestion)
		if err != nil {
			return err
		}
		out, err := renderReport(rep, format)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), out, anaOutput); err != nil {
			return err
		}
		if anaOutput != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaWorkspace, "workspace", "w", "", "workspace holding --dataset (default: enclosing workspace)")
	analyzeCmd.Flags().StringVar(&anaDataset, "dataset", "", "registered dataset name or ID")
	analyzeCmd.Flags().StringVarP(&anaQuestion, "question", "q", "", "month-over-month question to answer alongside the report")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "", "output format: json|markdown|html|prompt (default from config)")
	analyzeCmd.Flags().StringVarP(&anaOutput, "output", "o", "", "write the report to this path instead of stdout")
	analyzeCmd.Flags().BoolVar(&anaRefresh, "refresh", false, "re-read the dataset file and bump its version if it changed")
	anaIngest.register(analyzeCmd)
}
