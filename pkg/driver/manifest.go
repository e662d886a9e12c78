// Package driver ties the pipeline together for whole projects: the
// coreil.yaml manifest, the coreil.lock lockfile, module resolution
// for Import statements (local files and git-hosted modules), and
// import flattening into a single executable document.
package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultManifestName is the manifest filename looked up in a project
// root.
const DefaultManifestName = "coreil.yaml"

// Manifest is the parsed coreil.yaml.
type Manifest struct {
	// Path is where the manifest was loaded from; not part of the file.
	Path string `yaml:"-"`

	Name    string `yaml:"name"`
	Entry   string `yaml:"entry"`
	Targets []string `yaml:"targets,omitempty"`

	// CacheDir holds fetched modules and the artifact store, relative
	// to the manifest directory unless absolute.
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Timeout bounds each toolchain subprocess.
	Timeout Duration `yaml:"timeout,omitempty"`

	// Toolchains overrides the built-in compile/run commands per
	// target name.
	Toolchains map[string]ToolchainSpec `yaml:"toolchains,omitempty"`

	// Modules maps import paths to sources that are not plain files
	// next to the entry document.
	Modules map[string]ModuleSource `yaml:"modules,omitempty"`
}

// Duration accepts Go duration syntax ("30s", "2m") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ToolchainSpec mirrors target.Spec in manifest form.
type ToolchainSpec struct {
	Compile []string `yaml:"compile,omitempty"`
	Run     []string `yaml:"run,omitempty"`
}

// ModuleSource says where an imported module lives. Exactly one of
// Path or Git is set; git sources pin a revision and name the document
// file inside the repository.
type ModuleSource struct {
	Path string `yaml:"path,omitempty"`

	Git    string `yaml:"git,omitempty"`
	Rev    string `yaml:"rev,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	File   string `yaml:"file,omitempty"`
}

// LoadManifest reads and validates a coreil.yaml. Unknown fields are
// errors, matching the lockfile loader.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m := &Manifest{}
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", abs, err)
	}
	m.Path = abs
	if err := m.normalize(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", abs, err)
	}
	return m, nil
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// ResolvedCacheDir returns the cache directory as an absolute path.
func (m *Manifest) ResolvedCacheDir() string {
	if filepath.IsAbs(m.CacheDir) {
		return m.CacheDir
	}
	return filepath.Join(m.Dir(), m.CacheDir)
}

func (m *Manifest) normalize() error {
	if m.Name == "" {
		return errors.New("missing name")
	}
	if m.Entry == "" {
		m.Entry = "main.coreil.json"
	}
	if m.CacheDir == "" {
		m.CacheDir = ".coreil-cache"
	}
	if m.Timeout <= 0 {
		m.Timeout = Duration(30 * time.Second)
	}
	for importPath, source := range m.Modules {
		if importPath == "" {
			return errors.New("module entry with empty import path")
		}
		if (source.Path == "") == (source.Git == "") {
			return fmt.Errorf("module %q: exactly one of path or git required", importPath)
		}
		if source.Git != "" {
			if source.Rev == "" && source.Tag == "" && source.Branch == "" {
				return fmt.Errorf("module %q: git sources require rev, tag, or branch", importPath)
			}
			if source.File == "" {
				return fmt.Errorf("module %q: git sources require a file inside the repository", importPath)
			}
		}
	}
	return nil
}
