package utils_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/datalens-cli/internal/utils"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "reports", "out.md")
	if err := utils.WriteFileAtomic(p, []byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := utils.WriteFileAtomic(p, []byte("two")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q, %v", b, err)
	}
	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
	info, _ := os.Stat(p)
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
}

func TestWriteFileAtomicFailsOnDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "taken")
	if err := os.Mkdir(filepath.Join(target), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := utils.WriteFileAtomic(target, []byte("x")); err == nil {
		t.Fatalf("expected error replacing a non-empty directory")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp file not cleaned up: %v", entries)
	}
}

func TestWriteJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ws.json")
	if err := utils.WriteJSON(p, map[string]int{"rows": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if b[len(b)-1] != '\n' {
		t.Fatalf("missing trailing newline: %q", b)
	}
	var got map[string]int
	if err := json.Unmarshal(b, &got); err != nil || got["rows"] != 3 {
		t.Fatalf("decoded %v, %v", got, err)
	}
}
