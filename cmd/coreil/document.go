package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/driver"
	"github.com/colmjr/English-compiler-sub000/pkg/validator"
)

var errManifestNotFound = errors.New("coreil.yaml not found")

func loadManifestFrom(dir string) (*driver.Manifest, error) {
	path := filepath.Join(dir, driver.DefaultManifestName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errManifestNotFound
		}
		return nil, err
	}
	return driver.LoadManifest(path)
}

// resolveEntry picks the document to operate on: the explicit file
// argument when given, otherwise the manifest entry.
func resolveEntry(args []string) (string, *driver.Manifest, error) {
	if len(args) > 1 {
		return "", nil, fmt.Errorf("unexpected arguments: %v", args[1:])
	}
	if len(args) == 1 {
		path := args[0]
		manifest, err := loadManifestFrom(filepath.Dir(path))
		if err != nil {
			if !errors.Is(err, errManifestNotFound) {
				return "", nil, err
			}
			manifest = nil
		}
		return path, manifest, nil
	}

	manifest, err := loadManifestFrom(".")
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			return "", nil, errors.New("no file argument and no coreil.yaml in the current directory")
		}
		return "", nil, err
	}
	return filepath.Join(manifest.Dir(), manifest.Entry), manifest, nil
}

// loadDocument reads and validates one document file.
func loadDocument(path string) (*ast.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	issues, err := validator.ValidateBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(os.Stderr, issue)
		}
		return nil, fmt.Errorf("%s: document failed validation", path)
	}
	return ast.DecodeDocument(data)
}

// loadProgram loads the entry document and flattens its imports into a
// single executable body. When a manifest is present and the program
// imported anything, the lockfile is refreshed next to it.
func loadProgram(args []string) (*ast.Document, *driver.Manifest, error) {
	path, manifest, err := resolveEntry(args)
	if err != nil {
		return nil, nil, err
	}
	doc, err := loadDocument(path)
	if err != nil {
		return nil, nil, err
	}

	var fetcher *driver.Fetcher
	var lock *driver.Lockfile
	if manifest != nil {
		fetcher = driver.NewFetcher(manifest.ResolvedCacheDir())
		lock = driver.NewLockfile(manifest.Name, cliVersion)
	}
	flat, err := driver.NewResolver(manifest, fetcher, lock).Flatten(doc, filepath.Dir(path))
	if err != nil {
		return nil, nil, err
	}
	if manifest != nil && len(lock.Modules) > 0 {
		lockPath := filepath.Join(manifest.Dir(), driver.DefaultLockfileName)
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	return flat, manifest, nil
}
