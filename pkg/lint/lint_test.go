package lint

import (
	"testing"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

func decode(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

func byRule(diags []Diagnostic, rule string) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if d.Rule == rule {
			out = append(out, d)
		}
	}
	return out
}

func TestUnusedVariable(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Let", "name": "used", "value": {"type": "Literal", "value": 1}},
    {"type": "Let", "name": "dead", "value": {"type": "Literal", "value": 2}},
    {"type": "Print", "args": [{"type": "Var", "name": "used"}]}
  ]
}`)
	diags := byRule(Lint(doc), "unused-variable")
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want one", diags)
	}
	if diags[0].Message != "variable 'dead' is declared but never used" {
		t.Fatalf("message = %q", diags[0].Message)
	}
	if diags[0].Path != "$[1]" {
		t.Fatalf("path = %q", diags[0].Path)
	}
}

func TestUseInsideNestedBlockCounts(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Let", "name": "total", "value": {"type": "Literal", "value": 0}},
    {"type": "While", "test": {"type": "Literal", "value": true}, "body": [
      {"type": "Assign", "name": "total", "value": {"type": "Binary", "op": "+",
        "left": {"type": "Var", "name": "total"},
        "right": {"type": "Literal", "value": 1}}},
      {"type": "Break"}
    ]}
  ]
}`)
	if diags := byRule(Lint(doc), "unused-variable"); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestUnreachableCodeReportedOncePerBlock(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "FuncDef", "name": "f", "params": [], "body": [
      {"type": "Return", "value": {"type": "Literal", "value": 1}},
      {"type": "Print", "args": [{"type": "Literal", "value": "a"}]},
      {"type": "Print", "args": [{"type": "Literal", "value": "b"}]}
    ]}
  ]
}`)
	diags := byRule(Lint(doc), "unreachable-code")
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want one", diags)
	}
	if diags[0].Message != "statements after Return are unreachable" {
		t.Fatalf("message = %q", diags[0].Message)
	}
	if diags[0].Path != "$[0].body[1]" {
		t.Fatalf("path = %q", diags[0].Path)
	}
}

func TestEmptyBody(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "While", "test": {"type": "Literal", "value": false}, "body": []},
    {"type": "If", "test": {"type": "Literal", "value": true},
      "then": [{"type": "Print", "args": [{"type": "Literal", "value": "x"}]}],
      "else": []},
    {"type": "If", "test": {"type": "Literal", "value": true},
      "then": [{"type": "Print", "args": [{"type": "Literal", "value": "y"}]}]}
  ]
}`)
	diags := byRule(Lint(doc), "empty-body")
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want two", diags)
	}
	if diags[0].Path != "$[0].body" || diags[1].Path != "$[1].else" {
		t.Fatalf("paths = %q, %q", diags[0].Path, diags[1].Path)
	}
}

func TestVariableShadowing(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Let", "name": "x", "value": {"type": "Literal", "value": 1}},
    {"type": "If", "test": {"type": "Var", "name": "x"}, "then": [
      {"type": "Let", "name": "x", "value": {"type": "Literal", "value": 2}},
      {"type": "Print", "args": [{"type": "Var", "name": "x"}]}
    ]}
  ]
}`)
	diags := byRule(Lint(doc), "variable-shadowing")
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v, want one", diags)
	}
	if diags[0].Message != "variable 'x' shadows an existing definition (use Assign instead)" {
		t.Fatalf("message = %q", diags[0].Message)
	}
}

func TestFunctionParamsShieldOuterScope(t *testing.T) {
	// A Let inside a function does not shadow module-level names, and
	// params count as defined inside the body.
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Let", "name": "n", "value": {"type": "Literal", "value": 1}},
    {"type": "FuncDef", "name": "f", "params": ["k"], "body": [
      {"type": "Let", "name": "n", "value": {"type": "Var", "name": "k"}},
      {"type": "Return", "value": {"type": "Var", "name": "n"}}
    ]},
    {"type": "Print", "args": [{"type": "Var", "name": "n"}]}
  ]
}`)
	if diags := byRule(Lint(doc), "variable-shadowing"); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestConstantCondition(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "If", "test": {"type": "Literal", "value": false}, "then": [
      {"type": "Print", "args": [{"type": "Literal", "value": "dead"}]}
    ]},
    {"type": "While", "test": {"type": "Literal", "value": 0}, "body": [
      {"type": "Break"}
    ]},
    {"type": "While", "test": {"type": "Literal", "value": true}, "body": [
      {"type": "Break"}
    ]}
  ]
}`)
	diags := byRule(Lint(doc), "constant-condition")
	if len(diags) != 2 {
		t.Fatalf("diagnostics = %v, want two", diags)
	}
	if diags[0].Message != "If condition is a constant" || diags[0].Path != "$[0].test" {
		t.Fatalf("first = %v", diags[0])
	}
	if diags[1].Path != "$[1].test" {
		t.Fatalf("second = %v", diags[1])
	}
}

func TestCleanDocumentHasNoDiagnostics(t *testing.T) {
	doc := decode(t, `{
  "version": "coreil-0.1",
  "body": [
    {"type": "Let", "name": "x", "value": {"type": "Literal", "value": 1}},
    {"type": "Print", "args": [{"type": "Var", "name": "x"}]}
  ]
}`)
	if diags := Lint(doc); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Rule: "empty-body", Message: "While has empty body", Severity: "warning", Path: "$[0].body"}
	want := "[warning] empty-body: While has empty body ($[0].body)"
	if got := d.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
