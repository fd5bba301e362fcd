package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datalens-cli/internal/workspace"
)

var (
	listWorkspaces bool
	listDatasets   bool
	listWsName     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces or datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listWorkspaces == listDatasets { // either both true or both false
			return fmt.Errorf("specify exactly one of --workspaces or --datasets")
		}
		out := cmd.OutOrStdout()
		if listWorkspaces {
			return listAllWorkspaces(cmd)
		}
		w, err := openWorkspace(listWsName)
		if err != nil {
			return err
		}
		datasets := w.List()
		if len(datasets) == 0 {
			fmt.Fprintln(out, "(no datasets)")
			return nil
		}
		for _, d := range datasets {
			fmt.Fprintf(out, "- %s: %s v%d, %d rows x %d cols", d.ID, d.Name, d.Version, d.Rows, d.Columns)
			if d.Description != "" {
				fmt.Fprintf(out, " (%s)", d.Description)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func listAllWorkspaces(cmd *cobra.Command) error {
	root, err := defaultWorkspacesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if workspace.Exists(filepath.Join(root, e.Name())) {
			fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "(no workspaces)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listWorkspaces, "workspaces", false, "list workspaces")
	listCmd.Flags().BoolVar(&listDatasets, "datasets", false, "list datasets in a workspace")
	listCmd.Flags().StringVarP(&listWsName, "workspace", "w", "", "workspace name for --datasets")
}
