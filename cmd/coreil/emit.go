package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/driver"
	"github.com/colmjr/English-compiler-sub000/pkg/emit"
	"github.com/colmjr/English-compiler-sub000/pkg/lower"
	"github.com/colmjr/English-compiler-sub000/pkg/optimize"
	"github.com/colmjr/English-compiler-sub000/pkg/store"
	"github.com/colmjr/English-compiler-sub000/pkg/target"
)

// parseTargetFlags splits --target and -o out of the argument list.
func parseTargetFlags(args []string) (targetName, outDir string, rest []string, err error) {
	outDir = "."
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case strings.HasPrefix(arg, "--target="):
			targetName = strings.TrimPrefix(arg, "--target=")
		case arg == "--target":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("--target requires a value")
			}
			i++
			targetName = args[i]
		case strings.HasPrefix(arg, "-o="):
			outDir = strings.TrimPrefix(arg, "-o=")
		case arg == "-o":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("-o requires a value")
			}
			i++
			outDir = args[i]
		default:
			rest = append(rest, arg)
		}
	}
	if targetName == "" {
		return "", "", nil, fmt.Errorf("missing --target (one of %s)", strings.Join(emit.Targets(), ", "))
	}
	return targetName, outDir, rest, nil
}

// openStore opens the artifact cache inside the manifest cache
// directory. Without a manifest there is nowhere to cache, and a cache
// that fails to open is a warning, not a fatal error.
func openStore(manifest *driver.Manifest) *store.Store {
	if manifest == nil {
		return nil
	}
	cacheDir := manifest.ResolvedCacheDir()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "warning: artifact cache unavailable: %v\n", err)
		return nil
	}
	st, err := store.Open(filepath.Join(cacheDir, "artifacts.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: artifact cache unavailable: %v\n", err)
		return nil
	}
	return st
}

func runEmit(args []string) int {
	targetName, outDir, rest, err := parseTargetFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	doc, manifest, err := loadProgram(rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	prepared := optimize.Optimize(lower.Lower(doc))

	st := openStore(manifest)
	if st != nil {
		defer st.Close()
	}
	artifact, err := target.Prepare(prepared, targetName, st)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	mainPath, err := target.WriteArtifact(outDir, artifact)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("wrote %s\n", mainPath)
	names := make([]string, 0, len(artifact.Support))
	for name := range artifact.Support {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("wrote %s\n", filepath.Join(outDir, name))
	}
	return 0
}
