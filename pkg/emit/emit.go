// Package emit generates target-language source from a lowered
// document. One framework, N backends: each backend fills two dispatch
// tables (expression type → code string, statement type → emitted
// lines) and the registry refuses to construct a backend whose tables
// do not cover the full node inventory, so an unhandled node type is a
// startup failure rather than silently broken output.
//
// Every backend's contract is parity with the interpreter: running the
// emitted program must produce character-identical stdout and the same
// exit code as interpreting the document.
package emit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/sourcemap"
)

// Output is one emitted program: the main source file, any runtime
// support files to write next to it, and the statement → line map for
// source-map composition.
type Output struct {
	// Filename is the suggested name for the main source file.
	Filename string
	Source   []byte
	// Support maps extra filenames to their contents.
	Support map[string][]byte
	LineMap sourcemap.StatementToLines
}

// Category classifies why a backend refused a node.
type Category string

const (
	CategoryExternal Category = "external-call"
	CategoryMethod   Category = "method-call"
	CategoryProperty Category = "property-access"
)

// UnsupportedError reports a node a backend refuses to emit. It is a
// deliberate, categorized failure: the caller can fall back to a
// cached artifact or another target instead of shipping broken code.
type UnsupportedError struct {
	Target   string
	NodeType string
	Category Category
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("target %s does not support %s (%s)", e.Target, e.NodeType, e.Category)
}

type exprHandler func(ast.Expr) (string, error)
type stmtHandler func(ast.Stmt) error

// Backend emits one target language. Construct via New.
type Backend struct {
	name  string
	ext   string
	emit  func(doc *ast.Document) (*Output, error)
	exprs func() map[string]exprHandler
	stmts func() map[string]stmtHandler
}

func (b *Backend) Name() string { return b.name }

// Extension is the target source file suffix, with the dot.
func (b *Backend) Extension() string { return b.ext }

// Emit generates code for a validated, lowered document.
func (b *Backend) Emit(doc *ast.Document) (*Output, error) {
	return b.emit(doc)
}

var constructors = map[string]func() (*Backend, error){
	"go":             newGoBackend,
	"python":         newPythonBackend,
	"cpp":            newCppBackend,
	"rust":           newRustBackend,
	"assemblyscript": newAssemblyScriptBackend,
}

// Targets lists the registered backend names, sorted.
func Targets() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// For returns the named backend after verifying its dispatch tables
// cover every node type in the inventory.
func For(name string) (*Backend, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown target '%s' (have: %s)", name, strings.Join(Targets(), ", "))
	}
	b, err := ctor()
	if err != nil {
		return nil, err
	}
	if err := checkCoverage(b); err != nil {
		return nil, err
	}
	return b, nil
}

// checkCoverage compares a backend's dispatch tables against the node
// inventory. Import is exempt: the driver flattens imports before any
// document reaches an emitter.
func checkCoverage(b *Backend) error {
	var missing []string
	exprs := b.exprs()
	for _, typ := range ast.ExprTypes {
		if _, ok := exprs[typ]; !ok {
			missing = append(missing, "expression "+typ)
		}
	}
	stmts := b.stmts()
	for _, typ := range ast.StmtTypes {
		if typ == "Import" {
			continue
		}
		if _, ok := stmts[typ]; !ok {
			missing = append(missing, "statement "+typ)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("target %s has no handler for: %s", b.name, strings.Join(missing, ", "))
	}
	return nil
}

// writer accumulates emitted lines and records which output lines each
// top-level statement produced.
type writer struct {
	lines   []string
	indent  int
	tab     string
	lineMap sourcemap.StatementToLines
	stmtIdx int // current top-level statement, -1 outside the body walk
}

func newWriter(tab string) *writer {
	return &writer{tab: tab, lineMap: sourcemap.StatementToLines{}, stmtIdx: -1}
}

func (w *writer) line(text string) {
	if w.stmtIdx >= 0 {
		w.lineMap[w.stmtIdx] = append(w.lineMap[w.stmtIdx], len(w.lines))
	}
	w.lines = append(w.lines, strings.Repeat(w.tab, w.indent)+text)
}

func (w *writer) blank() {
	w.lines = append(w.lines, "")
}

func (w *writer) in()  { w.indent++ }
func (w *writer) out() { w.indent-- }

func (w *writer) source() []byte {
	return []byte(strings.Join(w.lines, "\n") + "\n")
}

// beginStmt marks the start of a top-level statement for the line map.
func (w *writer) beginStmt(index int) { w.stmtIdx = index }
func (w *writer) endBody()            { w.stmtIdx = -1 }
