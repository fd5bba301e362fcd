package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/cache"
	"github.com/KaramelBytes/datalens-cli/internal/parser"
	"github.com/KaramelBytes/datalens-cli/internal/table"
	"github.com/KaramelBytes/datalens-cli/internal/utils"
	"github.com/KaramelBytes/datalens-cli/internal/workspace"
)

// ingestFlags are the parsing flags shared by every command that reads files.
type ingestFlags struct {
	delimiter  string
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", -1, "maximum rows to analyze (0 = unlimited, default from config)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *ingestFlags) options() (parser.Options, error) {
	opt := parser.Options{SheetName: f.sheetName, SheetIndex: f.sheetIndex}
	if cfg != nil {
		opt.MaxRows = cfg.MaxRows
	}
	if f.maxRows >= 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	return opt, nil
}

// source is something that can be analyzed: an ad-hoc file or a registered dataset.
type source struct {
	name   string
	key    cache.Key
	ingest parser.Options
	load   func() (*table.Table, error)
}

// fileSource keys an ad-hoc file by its content hash and modification time.
func fileSource(path string, opt parser.Options) (source, error) {
	if !parser.Supported(path) {
		return source{}, fmt.Errorf("%s: %w", filepath.Base(path), parser.ErrUnsupported)
	}
	info, err := os.Stat(path)
	if err != nil {
		return source{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("read file: %w", err)
	}
	name := filepath.Base(path)
	return source{
		name:   name,
		key:    cache.Key{DatasetID: "file:" + workspace.Fingerprint(data), UpdatedAt: info.ModTime()},
		ingest: opt,
		load:   func() (*table.Table, error) {
			t, err := parser.ParseBytes(path, data, opt)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", name, err)
			}
			return t, nil
		},
	}, nil
}

func datasetSource(d *workspace.Dataset, opt parser.Options) source {
	return source{
		name:   d.Name,
		key:    d.CacheKey(""),
		ingest: opt,
		load:   func() (*table.Table, error) { return d.Load(opt) },
	}
}

func engineOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	if cfg != nil && cfg.DateSampleSize > 0 {
		opt.DateSampleSize = cfg.DateSampleSize
	}
	opt.Logger = &log.Logger
	return opt
}

// reportVariant distinguishes reports of the same data parsed or asked differently.
func reportVariant(ingest parser.Options, question string) string {
	return ingest.String() + "|" + strings.ToLower(strings.Join(strings.Fields(question), " "))
}

// buildReport returns the cached report for src and question, computing it
// at most once per cache key.
func buildReport(ctx context.Context, src source, question string) (*analysis.Report, error) {
	key := src.key
	key.Variant = reportVariant(src.ingest, question)
	compute := func(context.Context) (*analysis.Report, error) {
		t, err := src.load()
		if err != nil {
			return nil, err
		}
		rep := analysis.Analyze(t, question, engineOptions())
		rep.Name = src.name
		return rep, nil
	}
	if reports == nil {
		return compute(ctx)
	}
	rep, hit, err := reports.GetOrCompute(ctx, key, compute)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dataset", src.name).Bool("cache_hit", hit).Msg("report ready")
	return rep, nil
}

var formatExtensions = map[string]string{
	"json":     ".json",
	"markdown": ".md",
	"html":     ".html",
	"prompt":   ".txt",
}

// renderReport encodes rep in one of json, markdown, html or prompt.
func renderReport(rep *analysis.Report, format string) ([]byte, error) {
	switch format {
	case "json":
		return utils.IndentJSON(rep)
	case "markdown":
		return []byte(rep.Markdown()), nil
	case "html":
		md := goldmark.New(goldmark.WithExtensions(extension.GFM))
		var buf bytes.Buffer
		if err := md.Convert([]byte(rep.Markdown()), &buf); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return buf.Bytes(), nil
	case "prompt":
		limit := 2000
		if cfg != nil {
			limit = cfg.PromptTokenLimit
		}
		return []byte(rep.PromptContext(limit)), nil
	}
	return nil, fmt.Errorf("unsupported --format: %s (use json|markdown|html|prompt)", format)
}

func resolveFormat(flag string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	if cfg != nil && cfg.DefaultFormat != "" {
		return cfg.DefaultFormat
	}
	return "markdown"
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, data []byte, path string) error {
	if path == "" {
		_, err := w.Write(append(data, '\n'))
		return err
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
