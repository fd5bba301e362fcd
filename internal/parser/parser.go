// Package parser turns uploaded tabular files into a semantic table.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

// Options controls ingestion.
type Options struct {
	// MaxRows caps the data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t'.
	Delimiter rune
	// SheetName selects an XLSX sheet by name; empty uses SheetIndex.
	SheetName string
	// SheetIndex is 1-based; 0 means the first sheet.
	SheetIndex int
}

// String renders the options that change parse output, for use in cache keys.
func (o Options) String() string {
	return fmt.Sprintf("rows=%d delim=%q sheet=%q#%d", o.MaxRows, o.Delimiter, o.SheetName, o.SheetIndex)
}

// Parser reads one file format into a table.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte, opt Options) (*table.Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported dataset format")

// Supported reports whether some registered parser handles filename.
func Supported(filename string) bool {
	return lookup(filename) != nil
}

func lookup(filename string) Parser {
	for _, p := range registry {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// ParseFile selects a parser based on filename and reads the file into a table.
func ParseFile(path string, opt Options) (*table.Table, error) {
	if lookup(path) == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Ext(path), ErrUnsupported)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	t, err := ParseBytes(path, data, opt)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// ParseBytes parses content as the format implied by filename. A .tsv name
// implies a tab delimiter unless one is set.
func ParseBytes(filename string, content []byte, opt Options) (*table.Table, error) {
	p := lookup(filename)
	if p == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Ext(filename), ErrUnsupported)
	}
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") && opt.Delimiter == 0 {
		opt.Delimiter = '\t'
	}
	return p.Parse(content, opt)
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}
