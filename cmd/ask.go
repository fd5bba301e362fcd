package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

var (
	askWorkspace string
	askJSON      bool
	askIngest    ingestFlags
)

var askCmd = &cobra.Command{
	Use:   "ask <file|dataset> <question...>",
	Short: "Answer a month-over-month question such as \"what happened in March?\"",
	Long: `Resolves the month named in the question (YYYY-MM or a month name), compares it with the
month before and explains the change. With --workspace the first argument names a
registered dataset instead of a file.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args[1:], " ")
		opt, err := askIngest.options()
		if err != nil {
			return err
		}
		var src source
		if askWorkspace != "" {
			w, err := openWorkspace(askWorkspace)
			if err != nil {
				return err
			}
			d, err := w.Find(args[0])
			if err != nil {
				return err
			}
			src = datasetSource(d, opt)
		} else {
			src, err = fileSource(args[0], opt)
			if err != nil {
				return err
			}
		}
		t, err := src.load()
		if err != nil {
			return err
		}
		a := analysis.Ask(t, question, engineOptions())
		if askJSON {
			b, err := utils.IndentJSON(a)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), b, "")
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askWorkspace, "workspace", "w", "", "treat the first argument as a dataset in this workspace")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the structured answer as JSON")
	askIngest.register(askCmd)
}
