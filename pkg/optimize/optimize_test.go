package optimize

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/interp"
)

func decode(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func firstLet(t *testing.T, doc *ast.Document) *ast.Let {
	t.Helper()
	let, ok := doc.Body[0].(*ast.Let)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.Let", doc.Body[0])
	}
	return let
}

func TestConstantFolding(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   any
	}{
		{"int add", `{"type": "Binary", "op": "+", "left": {"type": "Literal", "value": 2}, "right": {"type": "Literal", "value": 3}}`, int64(5)},
		{"real division", `{"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 7}, "right": {"type": "Literal", "value": 2}}`, 3.5},
		{"floor division", `{"type": "Binary", "op": "//", "left": {"type": "Literal", "value": -7}, "right": {"type": "Literal", "value": 2}}`, int64(-4)},
		{"floor modulo", `{"type": "Binary", "op": "%", "left": {"type": "Literal", "value": -7}, "right": {"type": "Literal", "value": 3}}`, int64(2)},
		{"string concat", `{"type": "Binary", "op": "+", "left": {"type": "Literal", "value": "a"}, "right": {"type": "Literal", "value": "b"}}`, "ab"},
		{"cross-kind equality", `{"type": "Binary", "op": "==", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 1.0}}`, true},
		{"not", `{"type": "Not", "arg": {"type": "Literal", "value": 0}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decode(t, `{"version": "coreil-1.10.5", "body": [{"type": "Let", "name": "x", "value": `+tt.source+`}]}`)
			out := Optimize(doc)
			lit, ok := firstLet(t, out).Value.(*ast.Literal)
			if !ok {
				t.Fatalf("value = %T, want *ast.Literal", firstLet(t, out).Value)
			}
			if diff := cmp.Diff(tt.want, lit.Value); diff != "" {
				t.Errorf("folded value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDivisionByZeroNotFolded(t *testing.T) {
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "Let", "name": "x", "value": {"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 0}}},
		{"type": "Let", "name": "y", "value": {"type": "Binary", "op": "%", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 0}}}
	]}`)
	out := Optimize(doc)
	for i := range out.Body {
		if _, ok := out.Body[i].(*ast.Let).Value.(*ast.Binary); !ok {
			t.Errorf("body[%d] value folded; the runtime error must survive", i)
		}
	}
}

func TestMixedOperandsNeverSimplified(t *testing.T) {
	// x + 0 only looks like an identity: without knowing x's type the
	// rewrite could erase a runtime error, so the node must survive.
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "Let", "name": "a", "value": {"type": "Binary", "op": "+", "left": {"type": "Var", "name": "x"}, "right": {"type": "Literal", "value": 0}}},
		{"type": "Let", "name": "b", "value": {"type": "Binary", "op": "*", "left": {"type": "Literal", "value": 1}, "right": {"type": "Var", "name": "x"}}},
		{"type": "Let", "name": "c", "value": {"type": "Binary", "op": "-", "left": {"type": "Var", "name": "x"}, "right": {"type": "Literal", "value": 0}}}
	]}`)
	out := Optimize(doc)
	for i := range out.Body {
		if _, ok := out.Body[i].(*ast.Let).Value.(*ast.Binary); !ok {
			t.Errorf("body[%d] value simplified to %T; mixed operands must stay", i, out.Body[i].(*ast.Let).Value)
		}
	}
}

func TestStringPlusZeroStillFailsAfterOptimize(t *testing.T) {
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "Let", "name": "s", "value": {"type": "Literal", "value": "a"}},
		{"type": "Print", "args": [{"type": "Binary", "op": "+", "left": {"type": "Var", "name": "s"}, "right": {"type": "Literal", "value": 0}}]}
	]}`)
	var out bytes.Buffer
	code := interp.Run(Optimize(doc), interp.Options{Stdout: &out})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if got := out.String(); got != "runtime error: cannot add string and int\n" {
		t.Errorf("output = %q", got)
	}
}

func TestDeadCodeAfterTerminators(t *testing.T) {
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "FuncDef", "name": "f", "params": [],
		 "body": [
			{"type": "Return", "value": {"type": "Literal", "value": 1}},
			{"type": "Print", "args": [{"type": "Literal", "value": "dead"}]}
		 ]},
		{"type": "While", "test": {"type": "Literal", "value": true},
		 "body": [
			{"type": "Break"},
			{"type": "Print", "args": [{"type": "Literal", "value": "dead"}]}
		 ]}
	]}`)
	out := Optimize(doc)
	fn := out.Body[0].(*ast.FuncDef)
	if len(fn.Body) != 1 {
		t.Errorf("function body = %d statements, want 1", len(fn.Body))
	}
	loop := out.Body[1].(*ast.While)
	if len(loop.Body) != 1 {
		t.Errorf("loop body = %d statements, want 1", len(loop.Body))
	}
}

func TestConstantBranchElimination(t *testing.T) {
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "If", "test": {"type": "Literal", "value": true},
		 "then": [{"type": "Print", "args": [{"type": "Literal", "value": "live"}]}],
		 "else": [{"type": "Print", "args": [{"type": "Literal", "value": "dead"}]}]},
		{"type": "If", "test": {"type": "Literal", "value": 0},
		 "then": [{"type": "Print", "args": [{"type": "Literal", "value": "dead"}]}],
		 "else": [{"type": "Print", "args": [{"type": "Literal", "value": "live"}]}]}
	]}`)
	out := Optimize(doc)
	first := out.Body[0].(*ast.If)
	if first.Else != nil {
		t.Error("always-true If kept its else branch")
	}
	second := out.Body[1].(*ast.If)
	if len(second.Then) != 1 || second.Else != nil {
		t.Errorf("always-false If not rewritten to its else body")
	}
}

func TestTernaryAndStringFormatFolding(t *testing.T) {
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "Let", "name": "a", "value": {"type": "Ternary",
			"test": {"type": "Literal", "value": false},
			"consequent": {"type": "Literal", "value": "yes"},
			"alternate": {"type": "Literal", "value": "no"}}},
		{"type": "Let", "name": "b", "value": {"type": "StringFormat", "parts": [
			{"type": "Literal", "value": "n="},
			{"type": "Literal", "value": 42}
		]}}
	]}`)
	out := Optimize(doc)
	if got := out.Body[0].(*ast.Let).Value.(*ast.Literal).Value; got != "no" {
		t.Errorf("ternary folded to %v", got)
	}
	if got := out.Body[1].(*ast.Let).Value.(*ast.Literal).Value; got != "n=42" {
		t.Errorf("string format folded to %v", got)
	}
}

func TestOptimizedOutputMatchesUnoptimized(t *testing.T) {
	source := `{"version": "coreil-1.10.5", "body": [
		{"type": "Let", "name": "total", "value": {"type": "Binary", "op": "+", "left": {"type": "Literal", "value": 2}, "right": {"type": "Literal", "value": 3}}},
		{"type": "For", "var": "i", "iter": {"type": "Range", "from": {"type": "Literal", "value": 0}, "to": {"type": "Var", "name": "total"}},
		 "body": [
			{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Var", "name": "i"}, "right": {"type": "Literal", "value": 3}},
			 "then": [{"type": "Continue"}]},
			{"type": "Print", "args": [{"type": "Binary", "op": "*", "left": {"type": "Var", "name": "i"}, "right": {"type": "Literal", "value": 1}}]}
		 ]},
		{"type": "Print", "args": [{"type": "Ternary", "test": {"type": "Literal", "value": true}, "consequent": {"type": "Literal", "value": "done"}, "alternate": {"type": "Literal", "value": "?"}}]}
	]}`
	doc := decode(t, source)

	var plain bytes.Buffer
	if code := interp.Run(doc, interp.Options{Stdout: &plain}); code != 0 {
		t.Fatalf("unoptimized run exited %d", code)
	}
	var opt bytes.Buffer
	if code := interp.Run(Optimize(doc), interp.Options{Stdout: &opt}); code != 0 {
		t.Fatalf("optimized run exited %d", code)
	}
	if diff := cmp.Diff(plain.String(), opt.String()); diff != "" {
		t.Errorf("optimization changed output (-plain +optimized):\n%s", diff)
	}
}

func TestInputNotMutated(t *testing.T) {
	doc := decode(t, `{"version": "coreil-1.10.5", "body": [
		{"type": "Let", "name": "x", "value": {"type": "Binary", "op": "+", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 2}}}
	]}`)
	before, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	Optimize(doc)
	after, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Optimize mutated its input document")
	}
}
