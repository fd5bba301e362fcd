package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datalens-cli/internal/analysis"
	"github.com/KaramelBytes/datalens-cli/internal/parser"
	"github.com/KaramelBytes/datalens-cli/internal/workspace"
)

var (
	abWorkspace string
	abOutDir    string
	abFormat    string
	abQuestion  string
	abWorkers   int
	abQuiet     bool
	abIngest    ingestFlags
)

// expandInputs resolves globs and literal paths into a sorted, de-duplicated
// list of supported files.
func expandInputs(args []string) []string {
	var files []string
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		files = append(files, matches...)
	}
	files = lo.Uniq(files)
	files = lo.Filter(files, func(p string, _ int) bool { return parser.Supported(p) })
	sort.Strings(files)
	return files
}

// outputNames gives each input a unique report file name; repeated base names
// get a __N suffix in input order.
func outputNames(files []string, ext string) []string {
	used := map[string]int{}
	out := make([]string, len(files))
	for i, path := range files {
		base := filepath.Base(path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		used[stem]++
		if n := used[stem]; n > 1 {
			stem = fmt.Sprintf("%s__%d", stem, n)
		}
		out[i] = stem + ".report" + ext
	}
	return out
}

// registerFile adds path to w, or refreshes it when already registered.
func registerFile(w *workspace.Workspace, path string, opt parser.Options) (*workspace.Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	d, err := w.Find(filepath.Base(abs))
	if err != nil {
		return w.AddDataset(abs, "", opt)
	}
	if d.Path != abs {
		return nil, fmt.Errorf("%s is already registered from %s: %w", d.Name, d.Path, workspace.ErrDatasetExists)
	}
	if _, err := w.Refresh(d, opt); err != nil {
		return nil, err
	}
	return d, nil
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze many CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		format := resolveFormat(abFormat)
		ext, ok := formatExtensions[format]
		if !ok {
			return fmt.Errorf("unsupported --format: %s (use json|markdown|html|prompt)", format)
		}
		opt, err := abIngest.options()
		if err != nil {
			return err
		}

		sources := make([]source, len(files))
		outDir := abOutDir
		if abWorkspace != "" {
			w, err := openWorkspace(abWorkspace)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = filepath.Join(w.RootDir(), "reports")
			}
			// Registration mutates w and finishes before the fan-out.
			for i, path := range files {
				d, err := registerFile(w, path, opt)
				if err != nil {
					return err
				}
				sources[i] = datasetSource(d, opt)
			}
			if err := w.Save(); err != nil {
				return err
			}
		} else {
			for i, path := range files {
				if sources[i], err = fileSource(path, opt); err != nil {
					return err
				}
			}
		}

		workers := abWorkers
		if workers <= 0 && cfg != nil {
			workers = cfg.BatchWorkers
		}
		if workers <= 0 {
			workers = 1
		}

		results := make([]*analysis.Report, len(files))
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(workers)
		total := len(files)
		for i := range files {
			g.Go(func() error {
				rep, err := buildReport(ctx, sources[i], abQuestion)
				if err != nil {
					return fmt.Errorf("%s: %w", files[i], err)
				}
				results[i] = rep
				log.Debug().Str("file", files[i]).Int("index", i+1).Int("total", total).Msg("batch item analyzed")
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		names := outputNames(files, ext)
		for i, rep := range results {
			data, err := renderReport(rep, format)
			if err != nil {
				return err
			}
			if outDir == "" {
				if !abQuiet {
					fmt.Fprintf(out, "[%d/%d] %s\n", i+1, total, files[i])
				}
				if err := writeOutput(out, data, ""); err != nil {
					return err
				}
				continue
			}
			dest := filepath.Join(outDir, names[i])
			if err := writeOutput(out, data, dest); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] ✓ %s -> %s\n", i+1, total, filepath.Base(files[i]), dest)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abWorkspace, "workspace", "w", "", "register files in this workspace and write reports under it")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for report files (default: stdout, or <workspace>/reports)")
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "", "output format: json|markdown|html|prompt (default from config)")
	analyzeBatchCmd.Flags().StringVarP(&abQuestion, "question", "q", "", "question answered in every report")
	analyzeBatchCmd.Flags().IntVar(&abWorkers, "workers", 0, "concurrent analyses (default from config)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abIngest.register(analyzeBatchCmd)
}
