package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addWorkspace string
	addDesc      string
	addIngest    ingestFlags
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Register a CSV/TSV/XLSX dataset in a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(addWorkspace)
		if err != nil {
			return err
		}
		opt, err := addIngest.options()
		if err != nil {
			return err
		}
		d, err := w.AddDataset(args[0], addDesc, opt)
		if err != nil {
			return err
		}
		if err := w.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dataset added: %s (%d rows, %d columns)\n", d.Name, d.Rows, d.Columns)
		return nil
	},
}

var removeWorkspace string

var removeCmd = &cobra.Command{
	Use:   "remove <dataset>",
	Short: "Unregister a dataset from a workspace (the file is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspace(removeWorkspace)
		if err != nil {
			return err
		}
		d, err := w.Find(args[0])
		if err != nil {
			return err
		}
		if err := w.Remove(d.ID); err != nil {
			return err
		}
		if err := w.Save(); err != nil {
			return err
		}
		if reports != nil {
			reports.Invalidate(d.ID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dataset removed: %s\n", d.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addWorkspace, "workspace", "w", "", "workspace name")
	addCmd.Flags().StringVar(&addDesc, "desc", "", "dataset description")
	addIngest.register(addCmd)

	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&removeWorkspace, "workspace", "w", "", "workspace name")
}
