package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

func writeModule(t *testing.T, dir, rel, contents string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func decodeDoc(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

const mathlibSource = `{
  "version": "coreil-0.1",
  "body": [
    {"type": "FuncDef", "name": "double", "params": ["x"], "body": [
      {"type": "Return", "value": {"type": "Binary", "op": "*",
        "left": {"type": "Var", "name": "x"},
        "right": {"type": "Literal", "value": 2}}}
    ]},
    {"type": "FuncDef", "name": "quad", "params": ["x"], "body": [
      {"type": "Return", "value": {"type": "Call", "name": "double", "args": [
        {"type": "Call", "name": "double", "args": [{"type": "Var", "name": "x"}]}
      ]}}
    ]},
    {"type": "Print", "args": [{"type": "Literal", "value": "module init"}]}
  ]
}`

func funcNames(body []ast.Stmt) []string {
	var names []string
	for _, stmt := range body {
		if fd, ok := stmt.(*ast.FuncDef); ok {
			names = append(names, fd.Name)
		}
	}
	return names
}

func TestFlattenInlinesImports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathlib.coreil.json", mathlibSource)

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Import", "path": "mathlib"},
    {"type": "Let", "name": "y", "value": {"type": "Call", "name": "mathlib.quad",
      "args": [{"type": "Literal", "value": 3}]}},
    {"type": "Call", "name": "mathlib.double", "args": [{"type": "Var", "name": "y"}]}
  ]
}`)

	flat, err := NewResolver(nil, nil, nil).Flatten(main, dir)
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	names := funcNames(flat.Body)
	if len(names) != 2 || names[0] != "mathlib__double" || names[1] != "mathlib__quad" {
		t.Fatalf("inlined function names = %v", names)
	}
	for _, stmt := range flat.Body {
		if _, ok := stmt.(*ast.Import); ok {
			t.Fatal("Import statement survived flattening")
		}
		if _, ok := stmt.(*ast.Print); ok {
			t.Fatal("module init statement was inlined")
		}
	}

	// Sibling call inside the inlined quad follows the rename.
	quad := flat.Body[1].(*ast.FuncDef)
	ret := quad.Body[0].(*ast.Return)
	outer := ret.Value.(*ast.Call)
	if outer.Name != "mathlib__double" {
		t.Fatalf("sibling call renamed to %q", outer.Name)
	}
	if inner := outer.Args[0].(*ast.Call); inner.Name != "mathlib__double" {
		t.Fatalf("nested sibling call renamed to %q", inner.Name)
	}

	// Dotted calls in the host body, both expression and statement
	// position, point at the prefixed names.
	let := flat.Body[2].(*ast.Let)
	if call := let.Value.(*ast.Call); call.Name != "mathlib__quad" {
		t.Fatalf("expression call renamed to %q", call.Name)
	}
	if call := flat.Body[3].(*ast.Call); call.Name != "mathlib__double" {
		t.Fatalf("statement call renamed to %q", call.Name)
	}
}

func TestFlattenHonorsAlias(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathlib.coreil.json", mathlibSource)

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Import", "path": "mathlib", "alias": "m"},
    {"type": "Call", "name": "m.double", "args": [{"type": "Literal", "value": 1}]}
  ]
}`)
	flat, err := NewResolver(nil, nil, nil).Flatten(main, dir)
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	names := funcNames(flat.Body)
	if len(names) != 2 || names[0] != "m__double" {
		t.Fatalf("aliased names = %v", names)
	}
	if call := flat.Body[2].(*ast.Call); call.Name != "m__double" {
		t.Fatalf("aliased call renamed to %q", call.Name)
	}
}

func TestFlattenNestedImports(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "inner.coreil.json", `{
  "version": "coreil-0.1",
  "body": [
    {"type": "FuncDef", "name": "one", "params": [], "body": [
      {"type": "Return", "value": {"type": "Literal", "value": 1}}
    ]}
  ]
}`)
	writeModule(t, dir, "outer.coreil.json", `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Import", "path": "inner"},
    {"type": "FuncDef", "name": "two", "params": [], "body": [
      {"type": "Return", "value": {"type": "Binary", "op": "+",
        "left": {"type": "Call", "name": "inner.one", "args": []},
        "right": {"type": "Call", "name": "inner.one", "args": []}}}
    ]}
  ]
}`)

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Import", "path": "outer"},
    {"type": "Call", "name": "outer.two", "args": []}
  ]
}`)
	flat, err := NewResolver(nil, nil, nil).Flatten(main, dir)
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	names := funcNames(flat.Body)
	if len(names) != 2 || names[0] != "outer__inner__one" || names[1] != "outer__two" {
		t.Fatalf("transitive names = %v", names)
	}
	two := flat.Body[1].(*ast.FuncDef)
	bin := two.Body[0].(*ast.Return).Value.(*ast.Binary)
	if call := bin.Left.(*ast.Call); call.Name != "outer__inner__one" {
		t.Fatalf("transitive call renamed to %q", call.Name)
	}
}

func TestFlattenRejectsImportCycles(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a.coreil.json", `{
  "version": "coreil-0.1",
  "body": [{"type": "Import", "path": "b"}]
}`)
	writeModule(t, dir, "b.coreil.json", `{
  "version": "coreil-0.1",
  "body": [{"type": "Import", "path": "a"}]
}`)

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [{"type": "Import", "path": "a"}]
}`)
	_, err := NewResolver(nil, nil, nil).Flatten(main, dir)
	if err == nil {
		t.Fatal("expected cycle error, got nil")
	}
	if !strings.Contains(err.Error(), "circular import") {
		t.Fatalf("cycle error = %v", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Fatalf("cycle chain missing from %v", err)
	}
}

func TestFlattenRejectsInvalidModule(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "bad.coreil.json", `{"version": "coreil-9.9", "body": []}`)

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [{"type": "Import", "path": "bad"}]
}`)
	_, err := NewResolver(nil, nil, nil).Flatten(main, dir)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), `module "bad"`) {
		t.Fatalf("error does not name the module: %v", err)
	}
}

func TestFlattenRecordsLockEntries(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "mathlib.coreil.json", mathlibSource)

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [{"type": "Import", "path": "mathlib"}]
}`)
	lock := NewLockfile("demo", "coreil")
	if _, err := NewResolver(nil, nil, lock).Flatten(main, dir); err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}

	entry := lock.Module("mathlib")
	if entry == nil {
		t.Fatal("lock entry missing")
	}
	if entry.Source != "file:mathlib.coreil.json" {
		t.Fatalf("Source = %q", entry.Source)
	}
	if len(entry.Checksum) != 64 {
		t.Fatalf("Checksum length = %d, want 64", len(entry.Checksum))
	}
	if len(entry.Imports) != 0 {
		t.Fatalf("Imports = %v, want none", entry.Imports)
	}
}

func TestFlattenUsesManifestModulePaths(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, DefaultManifestName, strings.TrimSpace(`
name: demo
modules:
  vendor.math:
    path: third_party/math.coreil.json
`)+"\n")
	writeModule(t, dir, "third_party/math.coreil.json", mathlibSource)

	m, err := LoadManifest(filepath.Join(dir, DefaultManifestName))
	if err != nil {
		t.Fatalf("LoadManifest returned error: %v", err)
	}

	main := decodeDoc(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Import", "path": "vendor.math", "alias": "vm"},
    {"type": "Call", "name": "vm.double", "args": [{"type": "Literal", "value": 4}]}
  ]
}`)
	flat, err := NewResolver(m, nil, nil).Flatten(main, dir)
	if err != nil {
		t.Fatalf("Flatten returned error: %v", err)
	}
	names := funcNames(flat.Body)
	if len(names) != 2 || names[0] != "vm__double" {
		t.Fatalf("manifest module names = %v", names)
	}
}
