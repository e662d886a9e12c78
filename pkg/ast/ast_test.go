package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleDoc = `{
  "version": "coreil-1.10.5",
  "body": [
    {"type": "Let", "name": "xs", "value": {"type": "Array", "items": [
      {"type": "Literal", "value": 1},
      {"type": "Literal", "value": 2.5},
      {"type": "Literal", "value": "three"}
    ]}},
    {"type": "For", "var": "i", "iter": {"type": "Range",
      "from": {"type": "Literal", "value": 0},
      "to": {"type": "Literal", "value": 3}},
      "body": [
        {"type": "If", "test": {"type": "Binary", "op": "==",
          "left": {"type": "Binary", "op": "%", "left": {"type": "Var", "name": "i"}, "right": {"type": "Literal", "value": 2}},
          "right": {"type": "Literal", "value": 0}},
          "then": [{"type": "Continue"}]},
        {"type": "Print", "args": [{"type": "Index", "base": {"type": "Var", "name": "xs"}, "index": {"type": "Var", "name": "i"}}]}
      ]},
    {"type": "Set", "base": {"type": "Var", "name": "m"}, "key": {"type": "Literal", "value": "k"}, "value": {"type": "Literal", "value": 1}}
  ],
  "ambiguities": [{"question": "which order?", "options": ["ascending", "descending"], "default": 0}]
}`

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Version != "coreil-1.10.5" {
		t.Errorf("version = %q", doc.Version)
	}
	if len(doc.Body) != 3 {
		t.Fatalf("body length = %d, want 3", len(doc.Body))
	}
	let, ok := doc.Body[0].(*Let)
	if !ok {
		t.Fatalf("body[0] = %T, want *Let", doc.Body[0])
	}
	arr, ok := let.Value.(*Array)
	if !ok {
		t.Fatalf("let value = %T, want *Array", let.Value)
	}
	if got := arr.Items[0].(*Literal).Value; got != int64(1) {
		t.Errorf("integer literal decoded as %T(%v), want int64(1)", got, got)
	}
	if got := arr.Items[1].(*Literal).Value; got != 2.5 {
		t.Errorf("float literal decoded as %T(%v), want 2.5", got, got)
	}
	if _, ok := doc.Body[2].(*MapPut); !ok {
		t.Errorf("statement-position Set decoded as %T, want *MapPut", doc.Body[2])
	}
	if len(doc.Ambiguities) != 1 || doc.Ambiguities[0].Default != 0 {
		t.Errorf("ambiguities = %+v", doc.Ambiguities)
	}
}

func TestSetDisambiguation(t *testing.T) {
	const doc = `{"version": "coreil-1.1", "body": [
    {"type": "Let", "name": "s", "value": {"type": "Set", "items": [{"type": "Literal", "value": 1}]}}
  ]}`
	parsed, err := DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	let := parsed.Body[0].(*Let)
	if _, ok := let.Value.(*SetLiteral); !ok {
		t.Errorf("expression-position Set decoded as %T, want *SetLiteral", let.Value)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	encoded, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	again, err := DecodeDocument(encoded)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if diff := cmp.Diff(doc, again); diff != "" {
		t.Errorf("round trip changed the document (-first +second):\n%s", diff)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	clone := doc.Clone()
	if diff := cmp.Diff(doc, clone); diff != "" {
		t.Fatalf("clone differs:\n%s", diff)
	}
	clone.Body[0].(*Let).Name = "renamed"
	if doc.Body[0].(*Let).Name != "xs" {
		t.Error("mutating the clone leaked into the original")
	}
}

func TestVersions(t *testing.T) {
	if !SupportedVersions[CurrentVersion] {
		t.Fatalf("current version %q not in supported set", CurrentVersion)
	}
	cases := []struct {
		version string
		sealed  bool
	}{
		{"coreil-0.1", false},
		{"coreil-0.4", false},
		{"coreil-0.5", true},
		{"coreil-1.0", true},
		{"coreil-1.10.5", true},
		{"bogus", false},
	}
	for _, tc := range cases {
		if got := IsSealed(tc.version); got != tc.sealed {
			t.Errorf("IsSealed(%q) = %v, want %v", tc.version, got, tc.sealed)
		}
	}
	if CompareVersions("coreil-1.10", "coreil-1.9") <= 0 {
		t.Error("1.10 should order after 1.9")
	}
	if CompareVersions("coreil-1.10", "coreil-1.10.5") >= 0 {
		t.Error("1.10 should order before 1.10.5")
	}
}

func TestNodeAllowedIn(t *testing.T) {
	if NodeAllowedIn("Switch", "coreil-1.9") {
		t.Error("Switch should not be allowed before 1.10")
	}
	if !NodeAllowedIn("Switch", "coreil-1.10") {
		t.Error("Switch should be allowed in 1.10")
	}
	if !NodeAllowedIn("Literal", "coreil-0.1") {
		t.Error("Literal should always be allowed")
	}
	if NodeAllowedIn("TryCatch", "coreil-1.7") {
		t.Error("TryCatch should not be allowed before 1.8")
	}
}
