package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultLockfileName is the lockfile written next to coreil.yaml.
const DefaultLockfileName = "coreil.lock"

// Lockfile records where every imported module was resolved from, so a
// later build reuses the same content or fails loudly when it drifted.
type Lockfile struct {
	Path      string
	Root      string
	Generated string
	Tool      string
	Modules   []*LockedModule
}

// LockedModule is one resolved import.
type LockedModule struct {
	// Name is the import path as written in the Import statement.
	Name string
	// Source is "file:<relative path>" or "git+<url>@<commit>".
	Source string
	// Checksum is the hex SHA-256 of the module document.
	Checksum string
	// Imports lists the module's own import paths.
	Imports []string
}

// NewLockfile constructs a lockfile seeded for the project root.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      strings.TrimSpace(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Modules:   []*LockedModule{},
	}
}

// Module returns the locked entry for an import path, or nil.
func (l *Lockfile) Module(name string) *LockedModule {
	for _, m := range l.Modules {
		if m != nil && m.Name == name {
			return m
		}
	}
	return nil
}

// Record adds or replaces the entry for a module.
func (l *Lockfile) Record(entry LockedModule) {
	for i, m := range l.Modules {
		if m != nil && m.Name == entry.Name {
			l.Modules[i] = &entry
			return
		}
	}
	l.Modules = append(l.Modules, &entry)
}

// LoadLockfile parses coreil.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	lock.normalize()
	return lock, nil
}

// WriteLockfile serialises the lockfile back to disk, refreshing
// metadata.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}

	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lock.toDisk()); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

func (l *Lockfile) normalize() {
	if l == nil {
		return
	}
	l.Root = strings.TrimSpace(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	sort.SliceStable(l.Modules, func(i, j int) bool {
		return l.Modules[i].Name < l.Modules[j].Name
	})
	for _, m := range l.Modules {
		if m == nil {
			continue
		}
		m.Name = strings.TrimSpace(m.Name)
		m.Source = strings.TrimSpace(m.Source)
		m.Checksum = strings.TrimSpace(m.Checksum)
		sort.Strings(m.Imports)
	}
}

func (l *Lockfile) toDisk() lockfileDisk {
	modules := make([]lockfileModule, 0, len(l.Modules))
	for _, m := range l.Modules {
		if m == nil {
			continue
		}
		modules = append(modules, lockfileModule{
			Name:     m.Name,
			Source:   m.Source,
			Checksum: m.Checksum,
			Imports:  append([]string{}, m.Imports...),
		})
	}
	return lockfileDisk{
		Root:      l.Root,
		Generated: l.Generated,
		Tool:      l.Tool,
		Modules:   modules,
	}
}

type lockfileDisk struct {
	Root      string           `yaml:"root"`
	Generated string           `yaml:"generated"`
	Tool      string           `yaml:"tool"`
	Modules   []lockfileModule `yaml:"modules"`
}

type lockfileModule struct {
	Name     string   `yaml:"name"`
	Source   string   `yaml:"source"`
	Checksum string   `yaml:"checksum"`
	Imports  []string `yaml:"imports,omitempty"`
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := &Lockfile{
		Root:      strings.TrimSpace(d.Root),
		Generated: strings.TrimSpace(d.Generated),
		Tool:      strings.TrimSpace(d.Tool),
		Modules:   make([]*LockedModule, 0, len(d.Modules)),
	}
	for _, m := range d.Modules {
		lock.Modules = append(lock.Modules, &LockedModule{
			Name:     strings.TrimSpace(m.Name),
			Source:   strings.TrimSpace(m.Source),
			Checksum: strings.TrimSpace(m.Checksum),
			Imports:  append([]string{}, m.Imports...),
		})
	}
	lock.normalize()
	return lock
}
