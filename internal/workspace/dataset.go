package workspace

import (
	"fmt"
	"os"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/KaramelBytes/datalens-cli/internal/cache"
	"github.com/KaramelBytes/datalens-cli/internal/parser"
	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// Dataset is a registered file. Rows are never stored, only the file
// reference and what identifies its current version.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Description string    `json:"description,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	Version     int       `json:"version"`
	AddedAt     time.Time `json:"added_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Fingerprint hashes file content with XXH3.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// Load parses the dataset's file.
func (d *Dataset) Load(opt parser.Options) (*table.Table, error) {
	t, err := parser.ParseFile(d.Path, opt)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", d.Name, err)
	}
	return t, nil
}

// CacheKey identifies the dataset's current version for result caching.
func (d *Dataset) CacheKey(variant string) cache.Key {
	return cache.Key{DatasetID: d.ID, Rows: d.Rows, UpdatedAt: d.UpdatedAt, Variant: variant}
}

// inspect reads path once and returns its fingerprint plus table shape.
func inspect(path string, opt parser.Options) (fp string, rows, cols int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, 0, fmt.Errorf("read dataset: %w", err)
	}
	t, err := parser.ParseBytes(path, data, opt)
	if err != nil {
		return "", 0, 0, fmt.Errorf("parse dataset: %w", err)
	}
	return Fingerprint(data), t.Rows(), t.NumCols(), nil
}
