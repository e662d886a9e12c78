package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultManifestName)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestDefaults(t *testing.T) {
	path := writeManifest(t, `
name: demo
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if m.Name != "demo" {
		t.Fatalf("Name = %q, want demo", m.Name)
	}
	if m.Entry != "main.coreil.json" {
		t.Fatalf("Entry default = %q", m.Entry)
	}
	if m.CacheDir != ".coreil-cache" {
		t.Fatalf("CacheDir default = %q", m.CacheDir)
	}
	if got := time.Duration(m.Timeout); got != 30*time.Second {
		t.Fatalf("Timeout default = %v, want 30s", got)
	}
}

func TestLoadManifestFull(t *testing.T) {
	path := writeManifest(t, `
name: orders
entry: src/orders.coreil.json
targets:
  - go
  - cpp
cache_dir: build/cache
timeout: 2m
toolchains:
  cpp:
    compile: ["g++", "-O2", "-o", "{bin}", "{source}"]
    run: ["{bin}"]
modules:
  util.text:
    path: vendor/text.coreil.json
  shared.math:
    git: https://example.com/shared.git
    tag: v1.2.0
    file: math.coreil.json
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	if m.Entry != "src/orders.coreil.json" {
		t.Fatalf("Entry = %q", m.Entry)
	}
	if len(m.Targets) != 2 || m.Targets[0] != "go" || m.Targets[1] != "cpp" {
		t.Fatalf("Targets = %v", m.Targets)
	}
	if got := time.Duration(m.Timeout); got != 2*time.Minute {
		t.Fatalf("Timeout = %v, want 2m", got)
	}
	tc, ok := m.Toolchains["cpp"]
	if !ok || len(tc.Compile) != 5 || tc.Compile[0] != "g++" {
		t.Fatalf("cpp toolchain not parsed: %#v", tc)
	}
	local := m.Modules["util.text"]
	if local.Path != "vendor/text.coreil.json" {
		t.Fatalf("path module not parsed: %#v", local)
	}
	remote := m.Modules["shared.math"]
	if remote.Git == "" || remote.Tag != "v1.2.0" || remote.File != "math.coreil.json" {
		t.Fatalf("git module not parsed: %#v", remote)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := writeManifest(t, `
name: demo
entrypoint: main.coreil.json
`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected unknown field error, got nil")
	}
}

func TestLoadManifestValidation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		fragment string
	}{
		{
			name:     "missing name",
			contents: `entry: main.coreil.json`,
			fragment: "missing name",
		},
		{
			name: "path and git together",
			contents: `
name: demo
modules:
  util:
    path: vendor/util.coreil.json
    git: https://example.com/util.git
    rev: abc
    file: util.coreil.json
`,
			fragment: "exactly one of path or git",
		},
		{
			name: "git without revision",
			contents: `
name: demo
modules:
  util:
    git: https://example.com/util.git
    file: util.coreil.json
`,
			fragment: "require rev, tag, or branch",
		},
		{
			name: "git without file",
			contents: `
name: demo
modules:
  util:
    git: https://example.com/util.git
    branch: main
`,
			fragment: "require a file",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.contents)
			_, err := LoadManifest(path)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("error %q missing fragment %q", err, tc.fragment)
			}
		})
	}
}

func TestResolvedCacheDir(t *testing.T) {
	path := writeManifest(t, `
name: demo
cache_dir: build/cache
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}
	want := filepath.Join(m.Dir(), "build", "cache")
	if got := m.ResolvedCacheDir(); got != want {
		t.Fatalf("ResolvedCacheDir = %q, want %q", got, want)
	}

	abs := t.TempDir()
	m.CacheDir = abs
	if got := m.ResolvedCacheDir(); got != abs {
		t.Fatalf("absolute cache dir rewritten to %q", got)
	}
}
