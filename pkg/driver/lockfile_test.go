package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockfileRoundTrip(t *testing.T) {
	lock := NewLockfile("demo", "coreil 0.1.0")
	lock.Record(LockedModule{
		Name:     "util.text",
		Source:   "file:vendor/text.coreil.json",
		Checksum: strings.Repeat("ab", 32),
	})
	lock.Record(LockedModule{
		Name:     "shared.math",
		Source:   "git+https://example.com/shared.git@0123abcd",
		Checksum: strings.Repeat("cd", 32),
		Imports:  []string{"util.text"},
	})

	path := filepath.Join(t.TempDir(), DefaultLockfileName)
	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile returned error: %v", err)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile returned error: %v", err)
	}
	if loaded.Root != "demo" || loaded.Tool != "coreil 0.1.0" {
		t.Fatalf("metadata lost: %#v", loaded)
	}
	if loaded.Generated == "" {
		t.Fatal("generated timestamp missing")
	}
	if len(loaded.Modules) != 2 {
		t.Fatalf("Modules length = %d, want 2", len(loaded.Modules))
	}
	if loaded.Modules[0].Name != "shared.math" || loaded.Modules[1].Name != "util.text" {
		t.Fatalf("modules not sorted by name: %q, %q", loaded.Modules[0].Name, loaded.Modules[1].Name)
	}
	math := loaded.Module("shared.math")
	if math == nil || math.Source != "git+https://example.com/shared.git@0123abcd" {
		t.Fatalf("git entry lost: %#v", math)
	}
	if len(math.Imports) != 1 || math.Imports[0] != "util.text" {
		t.Fatalf("imports lost: %#v", math.Imports)
	}
}

func TestLockfileRecordReplaces(t *testing.T) {
	lock := NewLockfile("demo", "coreil")
	lock.Record(LockedModule{Name: "util", Checksum: "old"})
	lock.Record(LockedModule{Name: "util", Checksum: "new"})
	if len(lock.Modules) != 1 {
		t.Fatalf("Modules length = %d, want 1", len(lock.Modules))
	}
	if got := lock.Module("util").Checksum; got != "new" {
		t.Fatalf("Checksum = %q, want new", got)
	}
	if lock.Module("missing") != nil {
		t.Fatal("lookup of missing module should be nil")
	}
}

func TestLoadLockfileRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultLockfileName)
	contents := strings.TrimSpace(`
root: demo
generated: "2026-01-02T03:04:05Z"
tool: coreil
resolved: yes
modules: []
`) + "\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}
	if _, err := LoadLockfile(path); err == nil {
		t.Fatal("expected unknown field error, got nil")
	}
}
