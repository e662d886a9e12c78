package validator

import (
	"strings"
	"testing"
)

func validateJSON(t *testing.T, doc string) []Issue {
	t.Helper()
	issues, err := ValidateBytes([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return issues
}

func hasIssue(issues []Issue, path, fragment string) bool {
	for _, issue := range issues {
		if issue.Path == path && strings.Contains(issue.Message, fragment) {
			return true
		}
	}
	return false
}

func TestAcceptsWellFormedDocument(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "x", "value": {"type": "Literal", "value": 1}},
			{"type": "Print", "args": [{"type": "Var", "name": "x"}]}
		]
	}`)
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestRejectsUnknownVersion(t *testing.T) {
	issues := validateJSON(t, `{"version": "coreil-9.9", "body": []}`)
	if !hasIssue(issues, "$.version", "version must be one of") {
		t.Errorf("missing version issue, got %v", issues)
	}
}

func TestCollectsAllErrors(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [
			{"type": "Print", "args": [{"type": "Var", "name": "a"}]},
			{"type": "Print", "args": [{"type": "Var", "name": "b"}]},
			{"type": "Bogus"}
		]
	}`)
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %v", issues)
	}
	if !hasIssue(issues, "$.body[0].args[0]", "used before definition") {
		t.Errorf("missing first read-before-define issue: %v", issues)
	}
	if !hasIssue(issues, "$.body[2].type", "unknown type") {
		t.Errorf("missing unknown-type issue: %v", issues)
	}
}

func TestReadBeforeDefineOrdering(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [
			{"type": "Let", "name": "x", "value": {"type": "Var", "name": "x"}},
			{"type": "Print", "args": [{"type": "Var", "name": "x"}]}
		]
	}`)
	// The Let's own initializer reads x before the Let completes.
	if len(issues) != 1 || !hasIssue(issues, "$.body[0].value", "used before definition") {
		t.Fatalf("got %v", issues)
	}
}

func TestFunctionScopeDoesNotLeak(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [
			{"type": "FuncDef", "name": "f", "params": ["p"], "body": [
				{"type": "Let", "name": "local", "value": {"type": "Var", "name": "p"}}
			]},
			{"type": "Print", "args": [{"type": "Var", "name": "local"}]}
		]
	}`)
	if !hasIssue(issues, "$.body[1].args[0]", "used before definition") {
		t.Errorf("function locals leaked into top level: %v", issues)
	}
}

func TestBreakContinueLegality(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.7",
		"body": [
			{"type": "Break"},
			{"type": "While", "test": {"type": "Literal", "value": true}, "body": [
				{"type": "Continue"},
				{"type": "FuncDef", "name": "f", "params": [], "body": [
					{"type": "Break"}
				]}
			]}
		]
	}`)
	if !hasIssue(issues, "$.body[0]", "Break is only allowed inside a loop") {
		t.Errorf("top-level Break accepted: %v", issues)
	}
	// Break inside a function defined inside a loop still crosses a
	// function boundary.
	if !hasIssue(issues, "$.body[1].body[1].body[0]", "Break is only allowed inside a loop") {
		t.Errorf("Break across function boundary accepted: %v", issues)
	}
	if hasIssue(issues, "$.body[1].body[0]", "Continue") {
		t.Errorf("legal Continue rejected: %v", issues)
	}
}

func TestReturnOutsideFunction(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [{"type": "Return", "value": {"type": "Literal", "value": 1}}]
	}`)
	if !hasIssue(issues, "$.body[0]", "Return is only allowed inside FuncDef") {
		t.Errorf("got %v", issues)
	}
}

func TestSealedVersionRejectsHelperCalls(t *testing.T) {
	doc := `{
		"version": "%s",
		"body": [{"type": "Call", "name": "keys", "args": [{"type": "Literal", "value": 1}]}]
	}`
	sealed := validateJSON(t, strings.Replace(doc, "%s", "coreil-1.0", 1))
	if !hasIssue(sealed, "$.body[0].name", "not allowed in sealed versions") {
		t.Errorf("sealed version accepted helper call: %v", sealed)
	}
	open := validateJSON(t, strings.Replace(doc, "%s", "coreil-0.4", 1))
	if hasIssue(open, "$.body[0].name", "not allowed") {
		t.Errorf("unsealed version rejected helper call: %v", open)
	}
}

func TestVersionGatesNodeTypes(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.9",
		"body": [{"type": "Switch", "test": {"type": "Literal", "value": 1}, "cases": []}]
	}`)
	if !hasIssue(issues, "$.body[0].type", "not available in version") {
		t.Errorf("Switch accepted in 1.9: %v", issues)
	}
}

func TestLiteralIndexChecks(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [
			{"type": "Let", "name": "xs", "value": {"type": "Array", "items": []}},
			{"type": "Print", "args": [{"type": "Index",
				"base": {"type": "Var", "name": "xs"},
				"index": {"type": "Literal", "value": -1}}]}
		]
	}`)
	if !hasIssue(issues, "$.body[1].args[0].index", "non-negative") {
		t.Errorf("negative literal index accepted pre-1.5: %v", issues)
	}
	// Negative indexing is part of the language from 1.5 on.
	after := validateJSON(t, `{
		"version": "coreil-1.5",
		"body": [
			{"type": "Let", "name": "xs", "value": {"type": "Array", "items": []}},
			{"type": "Print", "args": [{"type": "Index",
				"base": {"type": "Var", "name": "xs"},
				"index": {"type": "Literal", "value": -1}}]}
		]
	}`)
	if len(after) != 0 {
		t.Errorf("negative literal index rejected in 1.5: %v", after)
	}
}

func TestAmbiguitiesShape(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [],
		"ambiguities": [
			{"question": "pick", "options": ["a", "b"], "default": 2},
			{"options": [], "default": 0}
		]
	}`)
	if !hasIssue(issues, "$.ambiguities[0].default", "valid option index") {
		t.Errorf("out-of-range default accepted: %v", issues)
	}
	if !hasIssue(issues, "$.ambiguities[1].question", "missing or invalid question") {
		t.Errorf("missing question accepted: %v", issues)
	}
	if !hasIssue(issues, "$.ambiguities[1].options", "missing or invalid options") {
		t.Errorf("empty options accepted: %v", issues)
	}
}

func TestSourceMapShape(t *testing.T) {
	issues := validateJSON(t, `{
		"version": "coreil-1.0",
		"body": [{"type": "Print", "args": []}],
		"source_map": {"0": [1, 2], "5": [3], "x": [1]}
	}`)
	if !hasIssue(issues, `$.source_map["5"]`, "out of body range") {
		t.Errorf("out-of-range key accepted: %v", issues)
	}
	if !hasIssue(issues, `$.source_map["x"]`, "statement index") {
		t.Errorf("non-numeric key accepted: %v", issues)
	}
}

func TestSourceMapIssuesAreDeterministic(t *testing.T) {
	doc := `{
		"version": "coreil-1.0",
		"body": [{"type": "Print", "args": []}],
		"source_map": {"z": [1], "a": [1], "9": [1], "m": [1]}
	}`
	want := validateJSON(t, doc)
	// Issue order must not depend on map iteration order.
	for run := 0; run < 20; run++ {
		got := validateJSON(t, doc)
		if len(got) != len(want) {
			t.Fatalf("run %d: %d issues, want %d", run, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("run %d: issues[%d] = %v, want %v", run, i, got[i], want[i])
			}
		}
	}
}

func TestValidatorNeverMutates(t *testing.T) {
	raw := map[string]any{
		"version": "coreil-1.0",
		"body":    []any{map[string]any{"type": "Print", "args": []any{}}},
	}
	Validate(raw)
	body := raw["body"].([]any)
	if len(body) != 1 {
		t.Fatal("validator mutated the document body")
	}
}
