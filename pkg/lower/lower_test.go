package lower

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

const loopDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "For", "var": "i",
		 "iter": {"type": "Range", "from": {"type": "Literal", "value": 0}, "to": {"type": "Literal", "value": 10}},
		 "body": [
			{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Var", "name": "i"}, "right": {"type": "Literal", "value": 3}},
			 "then": [{"type": "Continue"}]},
			{"type": "Print", "args": [{"type": "Var", "name": "i"}]}
		 ]}
	]
}`

func decode(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestLoopsSurviveLowering(t *testing.T) {
	doc := decode(t, loopDoc)
	lowered := Lower(doc)

	loop, ok := lowered.Body[0].(*ast.For)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.For", lowered.Body[0])
	}
	if _, ok := loop.Iter.(*ast.Range); !ok {
		t.Errorf("iter = %T, want *ast.Range", loop.Iter)
	}
	if _, ok := loop.Body[0].(*ast.If); !ok {
		t.Errorf("body[0] = %T, want *ast.If", loop.Body[0])
	}
}

func TestLoweringIsStructurallyIdentity(t *testing.T) {
	doc := decode(t, loopDoc)
	lowered := Lower(doc)

	want, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode input: %v", err)
	}
	got, err := lowered.Encode()
	if err != nil {
		t.Fatalf("encode output: %v", err)
	}
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("lowered document diverged (-want +got):\n%s", diff)
	}
}

func TestLoweringDoesNotShareNodes(t *testing.T) {
	doc := decode(t, loopDoc)
	lowered := Lower(doc)

	original := doc.Body[0].(*ast.For)
	copied := lowered.Body[0].(*ast.For)
	if original == copied {
		t.Fatal("lowered document shares statement nodes with its input")
	}
	copied.Var = "renamed"
	if original.Var != "i" {
		t.Error("mutating the lowered copy reached the input document")
	}
}
