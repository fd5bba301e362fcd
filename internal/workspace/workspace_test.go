package workspace_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/parser"
	"github.com/KaramelBytes/datalens-cli/internal/workspace"
)

func TestAddDatasetSaveLoad(t *testing.T) {
	tdir := t.TempDir()
	csv := filepath.Join(tdir, "sales.csv")
	if err := os.WriteFile(csv, []byte("region,revenue\neast,10\nwest,20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws := workspace.New("q1", "quarter one", filepath.Join(tdir, "ws"))
	d, err := ws.AddDataset(csv, " monthly export ", parser.Options{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if d.Rows != 2 || d.Columns != 2 || d.Version != 1 || d.Fingerprint == "" {
		t.Fatalf("unexpected dataset: %+v", d)
	}
	if d.Description != "monthly export" {
		t.Fatalf("description not trimmed: %q", d.Description)
	}
	if _, err := ws.AddDataset(csv, "", parser.Options{}); !errors.Is(err, workspace.ErrDatasetExists) {
		t.Fatalf("expected ErrDatasetExists, got %v", err)
	}
	if err := ws.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !workspace.Exists(ws.RootDir()) {
		t.Fatalf("workspace.json missing")
	}

	loaded, err := workspace.Load(ws.RootDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := loaded.Find("sales.csv")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("id mismatch %s != %s", got.ID, d.ID)
	}
	if _, err := loaded.Find(d.ID); err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if !got.CacheKey("x").UpdatedAt.Equal(d.UpdatedAt) {
		t.Fatalf("updated_at did not round-trip")
	}
	tbl, err := got.Load(parser.Options{})
	if err != nil || tbl.Rows() != 2 {
		t.Fatalf("load table: %v", err)
	}
}

func TestRefreshBumpsVersionOnChange(t *testing.T) {
	tdir := t.TempDir()
	csv := filepath.Join(tdir, "sales.csv")
	if err := os.WriteFile(csv, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ws := workspace.New("w", "", filepath.Join(tdir, "ws"))
	ws.SetClock(func() time.Time { return clock })
	d, err := ws.AddDataset(csv, "", parser.Options{})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	before := d.CacheKey("")

	changed, err := ws.Refresh(d, parser.Options{})
	if err != nil || changed {
		t.Fatalf("unchanged file reported changed=%v err=%v", changed, err)
	}

	if err := os.WriteFile(csv, []byte("a\n1\n2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Minute)
	changed, err = ws.Refresh(d, parser.Options{})
	if err != nil || !changed {
		t.Fatalf("changed file not detected: changed=%v err=%v", changed, err)
	}
	if d.Version != 2 || d.Rows != 2 {
		t.Fatalf("version=%d rows=%d", d.Version, d.Rows)
	}
	if after := d.CacheKey(""); after == before {
		t.Fatalf("cache key did not change")
	}
}

func TestFindMissingAndRemove(t *testing.T) {
	ws := workspace.New("w", "", t.TempDir())
	if _, err := ws.Find("nope"); !errors.Is(err, workspace.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
	if err := ws.Remove("nope"); !errors.Is(err, workspace.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestAddDatasetUnsupported(t *testing.T) {
	tdir := t.TempDir()
	p := filepath.Join(tdir, "notes.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	ws := workspace.New("w", "", tdir)
	if _, err := ws.AddDataset(p, "", parser.Options{}); !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestFindRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	if err := workspace.New("q1", "", root).Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	nested := filepath.Join(root, "data", "2024")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(nested, "sales.csv")
	if err := os.WriteFile(file, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, start := range []string{root, nested, file} {
		got, err := workspace.FindRoot(start)
		if err != nil {
			t.Fatalf("find from %s: %v", start, err)
		}
		if got != root {
			t.Fatalf("root from %s = %s, want %s", start, got, root)
		}
	}
	if _, err := workspace.FindRoot(t.TempDir()); !errors.Is(err, workspace.ErrNoWorkspace) {
		t.Fatalf("expected ErrNoWorkspace, got %v", err)
	}
}
