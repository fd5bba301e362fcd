package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/KaramelBytes/datalens-cli/internal/workspace"
)

func defaultWorkspacesDir() (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.WorkspacesDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".datalens", "workspaces")
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveWorkspaceDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("workspace name is required")
	}
	root, err := defaultWorkspacesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

// openWorkspace loads the named workspace, or the one enclosing the working
// directory when name is empty.
func openWorkspace(name string) (*workspace.Workspace, error) {
	if name == "" {
		dir, err := workspace.FindRoot("")
		if err != nil {
			return nil, fmt.Errorf("--workspace is required outside a workspace directory: %w", err)
		}
		return workspace.Load(dir)
	}
	dir, err := resolveWorkspaceDirByName(name)
	if err != nil {
		return nil, err
	}
	return workspace.Load(dir)
}
