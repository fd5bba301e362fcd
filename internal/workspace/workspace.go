// Package workspace keeps a registry of datasets on disk.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/datalens-cli/internal/parser"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

const workspaceFileName = "workspace.json"

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrDatasetExists   = errors.New("dataset already registered")
	ErrNoWorkspace     = errors.New("no " + workspaceFileName + " in this directory or any parent")
)

// Workspace groups datasets persisted in one directory.
type Workspace struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Datasets    map[string]*Dataset `json:"datasets"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	rootDir string
	now     func() time.Time
}

// New constructs an in-memory workspace. Call Save() to persist.
func New(name, description, rootDir string) *Workspace {
	now := time.Now()
	return &Workspace{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*Dataset),
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
		now:         time.Now,
	}
}

// Load reads workspace.json from dir.
func Load(dir string) (*Workspace, error) {
	path := filepath.Join(dir, workspaceFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read workspace: %w", err)
	}
	var w Workspace
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("parse workspace: %w", err)
	}
	if w.Datasets == nil {
		w.Datasets = make(map[string]*Dataset)
	}
	w.rootDir = dir
	w.now = time.Now
	return &w, nil
}

// Exists reports whether dir holds a workspace.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, workspaceFileName))
	return err == nil
}

func (w *Workspace) RootDir() string { return w.rootDir }

// SetClock replaces the time source; used by tests.
func (w *Workspace) SetClock(now func() time.Time) { w.now = now }

// Save writes workspace.json atomically.
func (w *Workspace) Save() error {
	if w.rootDir == "" {
		return errors.New("workspace root directory not set")
	}
	w.UpdatedAt = w.now()
	if err := utils.WriteJSON(filepath.Join(w.rootDir, workspaceFileName), w); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}

// AddDataset parses path and registers it under its base name.
func (w *Workspace) AddDataset(path, description string, opt parser.Options) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	name := filepath.Base(abs)
	if _, err := w.Find(name); err == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrDatasetExists)
	}
	fp, rows, cols, err := inspect(abs, opt)
	if err != nil {
		return nil, err
	}
	now := w.now()
	d := &Dataset{
		ID:          uuid.NewString(),
		Name:        name,
		Path:        abs,
		Description: strings.TrimSpace(description),
		Fingerprint: fp,
		Rows:        rows,
		Columns:     cols,
		Version:     1,
		AddedAt:     now,
		UpdatedAt:   now,
	}
	w.Datasets[d.ID] = d
	w.UpdatedAt = now
	log.Info().Str("dataset", name).Int("rows", rows).Int("cols", cols).Msg("dataset registered")
	return d, nil
}

// Refresh re-reads the dataset's file and bumps its version when the
// content changed. It reports whether anything changed.
func (w *Workspace) Refresh(d *Dataset, opt parser.Options) (bool, error) {
	fp, rows, cols, err := inspect(d.Path, opt)
	if err != nil {
		return false, err
	}
	if fp == d.Fingerprint {
		return false, nil
	}
	d.Fingerprint = fp
	d.Rows = rows
	d.Columns = cols
	d.Version++
	d.UpdatedAt = w.now()
	w.UpdatedAt = d.UpdatedAt
	log.Info().Str("dataset", d.Name).Int("version", d.Version).Msg("dataset changed on disk")
	return true, nil
}

// Find looks a dataset up by ID or name.
func (w *Workspace) Find(nameOrID string) (*Dataset, error) {
	if d, ok := w.Datasets[nameOrID]; ok {
		return d, nil
	}
	for _, d := range w.Datasets {
		if d.Name == nameOrID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", nameOrID, ErrDatasetNotFound)
}

// Remove unregisters a dataset; the file itself is left alone.
func (w *Workspace) Remove(nameOrID string) error {
	d, err := w.Find(nameOrID)
	if err != nil {
		return err
	}
	delete(w.Datasets, d.ID)
	w.UpdatedAt = w.now()
	return nil
}

// List returns datasets sorted by name.
func (w *Workspace) List() []*Dataset {
	out := make([]*Dataset, 0, len(w.Datasets))
	for _, d := range w.Datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindRoot returns the nearest directory at or above start that holds a
// workspace file. An empty start means the working directory; a file path
// starts from its parent.
func FindRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		start = wd
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}
