package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/validator"
)

// Resolver flattens a document's imports into a single self-contained
// body. Each imported module contributes its top-level function
// definitions, renamed with an "alias__" prefix; module-level statements
// of imported modules are ignored. Nested imports flatten recursively,
// so a transitive function arrives as "outer__inner__name".
type Resolver struct {
	manifest *Manifest
	fetcher  *Fetcher
	lock     *Lockfile

	loaded  map[string]*resolvedModule
	loading map[string]bool
	stack   []string
}

type resolvedModule struct {
	exports []*ast.FuncDef
	imports []string
}

// NewResolver builds a resolver. The manifest, fetcher, and lockfile
// are all optional; without them only path-convention imports resolve.
func NewResolver(m *Manifest, fetcher *Fetcher, lock *Lockfile) *Resolver {
	return &Resolver{
		manifest: m,
		fetcher:  fetcher,
		lock:     lock,
		loaded:   map[string]*resolvedModule{},
		loading:  map[string]bool{},
	}
}

// Flatten returns a copy of doc with every Import statement replaced by
// the imported functions, prefixed and with their calls rewritten.
func (r *Resolver) Flatten(doc *ast.Document, baseDir string) (*ast.Document, error) {
	body, err := r.flattenBody(doc.Body, baseDir)
	if err != nil {
		return nil, err
	}
	return &ast.Document{
		Version:     doc.Version,
		Body:        body,
		Ambiguities: doc.Ambiguities,
		SourceMap:   doc.SourceMap,
	}, nil
}

func (r *Resolver) flattenBody(body []ast.Stmt, baseDir string) ([]ast.Stmt, error) {
	var inlined []ast.Stmt
	var host []ast.Stmt
	renames := map[string]string{}

	for _, stmt := range body {
		imp, ok := stmt.(*ast.Import)
		if !ok {
			host = append(host, stmt)
			continue
		}

		mod, err := r.load(imp.Path, baseDir)
		if err != nil {
			return nil, err
		}

		alias := imp.Alias
		if alias == "" {
			segments := strings.Split(imp.Path, ".")
			alias = segments[len(segments)-1]
		}

		siblings := map[string]string{}
		for _, fd := range mod.exports {
			prefixed := alias + "__" + fd.Name
			siblings[fd.Name] = prefixed
			renames[alias+"."+fd.Name] = prefixed
		}
		for _, fd := range mod.exports {
			inlined = append(inlined, &ast.FuncDef{
				Name:   siblings[fd.Name],
				Params: fd.Params,
				Body:   renameCalls(fd.Body, siblings),
			})
		}
	}

	return append(inlined, renameCalls(host, renames)...), nil
}

// load reads, validates, and recursively flattens one imported module,
// caching the result by file path.
func (r *Resolver) load(importPath, baseDir string) (*resolvedModule, error) {
	path, lockEntry, err := r.locate(importPath, baseDir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("module %q: resolve %s: %w", importPath, path, err)
	}

	if r.loading[abs] {
		chain := append(append([]string{}, r.stack...), importPath)
		return nil, fmt.Errorf("circular import: %s", strings.Join(chain, " -> "))
	}
	if mod, ok := r.loaded[abs]; ok {
		return mod, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", importPath, err)
	}

	issues, err := validator.ValidateBytes(data)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", importPath, err)
	}
	if len(issues) > 0 {
		return nil, fmt.Errorf("module %q: invalid document: %s", importPath, issues[0])
	}

	doc, err := ast.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", importPath, err)
	}

	r.loading[abs] = true
	r.stack = append(r.stack, importPath)
	flat, err := r.flattenBody(doc.Body, filepath.Dir(abs))
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.loading, abs)
	if err != nil {
		return nil, err
	}

	mod := &resolvedModule{imports: importPaths(doc.Body)}
	for _, stmt := range flat {
		if fd, ok := stmt.(*ast.FuncDef); ok {
			mod.exports = append(mod.exports, fd)
		}
	}
	r.loaded[abs] = mod

	if r.lock != nil {
		entry := lockEntry
		if entry == nil {
			sum := sha256.Sum256(data)
			entry = &LockedModule{
				Name:     importPath,
				Source:   "file:" + relativeTo(abs, baseDir),
				Checksum: hex.EncodeToString(sum[:]),
			}
		}
		entry.Imports = mod.imports
		r.lock.Record(*entry)
	}
	return mod, nil
}

// locate maps an import path to a document file. Manifest entries win;
// otherwise the dotted path becomes a relative file path, so "util.math"
// loads "util/math.coreil.json" next to the importing document.
func (r *Resolver) locate(importPath, baseDir string) (string, *LockedModule, error) {
	if r.manifest != nil {
		if src, ok := r.manifest.Modules[importPath]; ok {
			if src.Path != "" {
				p := src.Path
				if !filepath.IsAbs(p) {
					p = filepath.Join(r.manifest.Dir(), p)
				}
				return p, nil, nil
			}
			docPath, entry, err := r.fetcher.Fetch(importPath, src)
			if err != nil {
				return "", nil, err
			}
			return docPath, entry, nil
		}
	}
	rel := strings.ReplaceAll(importPath, ".", string(filepath.Separator)) + ".coreil.json"
	return filepath.Join(baseDir, rel), nil, nil
}

// renameCalls rewrites call targets in both expression and statement
// position. Statement-position calls are distinct nodes, so the block
// hook handles them.
func renameCalls(body []ast.Stmt, renames map[string]string) []ast.Stmt {
	if len(renames) == 0 {
		return body
	}
	exprF := func(e ast.Expr) ast.Expr {
		if c, ok := e.(*ast.Call); ok {
			if to, ok := renames[c.Name]; ok {
				return &ast.Call{Name: to, Args: c.Args}
			}
		}
		return e
	}
	blockF := func(stmts []ast.Stmt) []ast.Stmt {
		for i, stmt := range stmts {
			if c, ok := stmt.(*ast.Call); ok {
				if to, ok := renames[c.Name]; ok {
					stmts[i] = &ast.Call{Name: to, Args: c.Args}
				}
			}
		}
		return stmts
	}
	return ast.RewriteBody(body, exprF, blockF)
}

func importPaths(body []ast.Stmt) []string {
	var paths []string
	for _, stmt := range body {
		if imp, ok := stmt.(*ast.Import); ok {
			paths = append(paths, imp.Path)
		}
	}
	return paths
}

func relativeTo(path, base string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
