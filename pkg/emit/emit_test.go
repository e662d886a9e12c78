package emit

import (
	"errors"
	"strings"
	"testing"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

func decode(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

const helloDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "Let", "name": "x", "value": {"type": "Literal", "value": 1}},
		{"type": "Print", "args": [
			{"type": "Binary", "op": "+", "left": {"type": "Var", "name": "x"}, "right": {"type": "Literal", "value": 2}}
		]}
	]
}`

func TestEveryTargetConstructsWithFullCoverage(t *testing.T) {
	for _, name := range Targets() {
		b, err := For(name)
		if err != nil {
			t.Errorf("For(%q): %v", name, err)
			continue
		}
		if b.Name() != name {
			t.Errorf("For(%q).Name() = %q", name, b.Name())
		}
		if !strings.HasPrefix(b.Extension(), ".") {
			t.Errorf("For(%q).Extension() = %q, want a dotted suffix", name, b.Extension())
		}
	}
}

func TestUnknownTargetNamesTheAlternatives(t *testing.T) {
	_, err := For("ruby")
	if err == nil {
		t.Fatal("For(ruby) succeeded")
	}
	for _, name := range Targets() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention target %q", err, name)
		}
	}
}

func TestEmitProducesRunnableShapePerTarget(t *testing.T) {
	cases := []struct {
		target   string
		filename string
		support  string
		marks    []string
	}{
		{"go", "main.go", "coreil_runtime.go", []string{"package main", "rtMain(run)"}},
		{"python", "main.py", "", []string{"import sys", "x = 1"}},
		{"cpp", "main.cpp", "coreil_runtime.hpp", []string{`#include "coreil_runtime.hpp"`, "int main() {", "coreil::run_main(run)"}},
		{"rust", "main.rs", "coreil_runtime.rs", []string{"mod coreil_runtime;", "fn main() {", "rt_main(run)"}},
		{"assemblyscript", "main.ts", "coreil_runtime.ts", []string{`} from "./coreil_runtime";`, "export function main(): void {"}},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			b, err := For(tc.target)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			out, err := b.Emit(decode(t, helloDoc))
			if err != nil {
				t.Fatalf("Emit: %v", err)
			}
			if out.Filename != tc.filename {
				t.Errorf("Filename = %q, want %q", out.Filename, tc.filename)
			}
			source := string(out.Source)
			for _, mark := range tc.marks {
				if !strings.Contains(source, mark) {
					t.Errorf("source does not contain %q:\n%s", mark, source)
				}
			}
			if tc.support == "" {
				if len(out.Support) != 0 {
					t.Errorf("unexpected support files: %v", out.Support)
				}
				return
			}
			content, ok := out.Support[tc.support]
			if !ok {
				t.Fatalf("missing support file %q", tc.support)
			}
			if len(content) == 0 {
				t.Errorf("support file %q is empty", tc.support)
			}
		})
	}
}

func TestCppRuntimeAppliesDotallFlag(t *testing.T) {
	b, err := For("cpp")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	out, err := b.Emit(decode(t, helloDoc))
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	support := string(out.Support["coreil_runtime.hpp"])
	// std::regex has no dotall option; the runtime must rewrite '.'
	// to a class matching newlines when the 's' flag is present.
	for _, mark := range []string{
		"dotall_pattern",
		`out += "[\\s\\S]";`,
		"flags.find('s')",
	} {
		if !strings.Contains(support, mark) {
			t.Errorf("cpp runtime does not contain %q", mark)
		}
	}
}

func TestLineMapCoversTopLevelStatements(t *testing.T) {
	for _, target := range Targets() {
		t.Run(target, func(t *testing.T) {
			b, err := For(target)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			out, err := b.Emit(decode(t, helloDoc))
			if err != nil {
				t.Fatalf("Emit: %v", err)
			}
			lines := strings.Split(string(out.Source), "\n")
			for stmt := 0; stmt < 2; stmt++ {
				mapped, ok := out.LineMap[stmt]
				if !ok || len(mapped) == 0 {
					t.Errorf("statement %d has no mapped lines", stmt)
					continue
				}
				for _, line := range mapped {
					if line < 0 || line >= len(lines) {
						t.Errorf("statement %d maps to line %d, source has %d lines", stmt, line, len(lines))
					}
				}
			}
		})
	}
}

const externalDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "Let", "name": "t", "value":
			{"type": "ExternalCall", "module": "time", "function": "time", "args": []}}
	]
}`

const methodDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "Let", "name": "s", "value":
			{"type": "MethodCall", "object": {"type": "Literal", "value": "hi"}, "method": "encode", "args": []}}
	]
}`

const propertyDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "Let", "name": "p", "value":
			{"type": "PropertyGet", "object": {"type": "Var", "name": "p"}, "property": "real"}}
	]
}`

func refusal(t *testing.T, target, source string) *UnsupportedError {
	t.Helper()
	b, err := For(target)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	_, err = b.Emit(decode(t, source))
	if err == nil {
		t.Fatalf("%s emitted a node it should refuse", target)
	}
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("%s returned %T (%v), want *UnsupportedError", target, err, err)
	}
	return unsupported
}

func TestExternalCallRefusalsAreCategorized(t *testing.T) {
	for _, target := range []string{"cpp", "rust", "assemblyscript"} {
		e := refusal(t, target, externalDoc)
		if e.Category != CategoryExternal {
			t.Errorf("%s: category = %q, want %q", target, e.Category, CategoryExternal)
		}
		if e.Target != target || e.NodeType != "ExternalCall" {
			t.Errorf("%s: refusal = %+v", target, e)
		}
	}
}

func TestExternalCallEmitsWhereTheTargetHasAHost(t *testing.T) {
	for _, target := range []string{"go", "python"} {
		b, err := For(target)
		if err != nil {
			t.Fatalf("For: %v", err)
		}
		if _, err := b.Emit(decode(t, externalDoc)); err != nil {
			t.Errorf("%s refused an external call: %v", target, err)
		}
	}
}

func TestMethodAndPropertyNodesAreRefusedEverywhere(t *testing.T) {
	for _, target := range Targets() {
		if e := refusal(t, target, methodDoc); e.Category != CategoryMethod {
			t.Errorf("%s: method category = %q", target, e.Category)
		}
		if e := refusal(t, target, propertyDoc); e.Category != CategoryProperty {
			t.Errorf("%s: property category = %q", target, e.Category)
		}
	}
}

const scopeDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "FuncDef", "name": "bump", "params": ["n"], "body": [
			{"type": "Let", "name": "local", "value": {"type": "Binary", "op": "+", "left": {"type": "Var", "name": "n"}, "right": {"type": "Literal", "value": 1}}},
			{"type": "Return", "value": {"type": "Var", "name": "local"}}
		]},
		{"type": "Let", "name": "total", "value": {"type": "Call", "name": "bump", "args": [{"type": "Literal", "value": 41}]}},
		{"type": "Print", "args": [{"type": "Var", "name": "total"}]}
	]
}`

// The declaration region is everything before the first function
// definition; locals hoisted inside f_bump use the same declaration
// text, so the check must not scan past it.
func TestFunctionLocalsDoNotBecomeGlobals(t *testing.T) {
	cases := []struct {
		target     string
		funcStart  string
		globalMark string
		localMark  string
	}{
		{"go", "\nfunc ", "v_total V", "v_local"},
		{"cpp", "coreil::Value f_bump", "coreil::Value v_total;", "v_local"},
		{"rust", "fn f_bump", "static G_total:", "G_local"},
		{"assemblyscript", "function f_bump", "let v_total: Value = Value.null_();", "v_local"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			b, err := For(tc.target)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			out, err := b.Emit(decode(t, scopeDoc))
			if err != nil {
				t.Fatalf("Emit: %v", err)
			}
			source := string(out.Source)
			at := strings.Index(source, tc.funcStart)
			if at < 0 {
				t.Fatalf("source lacks function definition marker %q:\n%s", tc.funcStart, source)
			}
			decls := source[:at]
			if !strings.Contains(decls, tc.globalMark) {
				t.Errorf("declaration region lacks %q:\n%s", tc.globalMark, decls)
			}
			if strings.Contains(decls, tc.localMark) {
				t.Errorf("function local %q leaked into the declaration region:\n%s", tc.localMark, decls)
			}
		})
	}
}

func TestCollectAssignedKeepsFirstUseOrder(t *testing.T) {
	doc := decode(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "b", "value": {"type": "Literal", "value": 1}},
			{"type": "If", "test": {"type": "Var", "name": "b"}, "then": [
				{"type": "Let", "name": "a", "value": {"type": "Literal", "value": 2}}
			]},
			{"type": "Assign", "name": "b", "value": {"type": "Literal", "value": 3}},
			{"type": "Let", "name": "c", "value": {"type": "Literal", "value": 4}}
		]
	}`)
	got := collectAssigned(doc.Body)
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("collectAssigned = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collectAssigned = %v, want %v", got, want)
		}
	}
}

func TestCollectAssignedSkipsFunctionBodies(t *testing.T) {
	doc := decode(t, scopeDoc)
	for _, name := range collectAssigned(doc.Body) {
		if name == "local" || name == "n" {
			t.Errorf("collectAssigned crossed into a function body: %v", collectAssigned(doc.Body))
		}
	}
}

const tryDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "TryCatch",
		 "body": [{"type": "Throw", "message": {"type": "Literal", "value": "boom"}}],
		 "catch_var": "err",
		 "catch_body": [{"type": "Print", "args": [{"type": "Var", "name": "err"}]}],
		 "finally_body": [{"type": "Print", "args": [{"type": "Literal", "value": "done"}]}]}
	]
}`

func TestTryCatchShapesPerTarget(t *testing.T) {
	cases := []struct {
		target string
		marks  []string
	}{
		{"go", []string{"rtTry(func()", "sigThrow"}},
		{"python", []string{"except Exception", "finally:"}},
		{"cpp", []string{"coreil::Finally", "try {", "catch (const coreil::Error&"}},
		{"rust", []string{"rt_try(||", "Signal::Throw"}},
		{"assemblyscript", []string{"try {", "} catch (_e0) {", "} finally {"}},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			b, err := For(tc.target)
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			out, err := b.Emit(decode(t, tryDoc))
			if err != nil {
				t.Fatalf("Emit: %v", err)
			}
			source := string(out.Source)
			for _, mark := range tc.marks {
				if !strings.Contains(source, mark) {
					t.Errorf("source lacks %q:\n%s", mark, source)
				}
			}
		})
	}
}

func TestImportMustBeFlattenedFirst(t *testing.T) {
	doc := decode(t, `{
		"version": "coreil-1.10.5",
		"body": [{"type": "Import", "path": "lib.json"}]
	}`)
	for _, target := range Targets() {
		b, err := For(target)
		if err != nil {
			t.Fatalf("For: %v", err)
		}
		if _, err := b.Emit(doc); err == nil {
			t.Errorf("%s emitted an unresolved import", target)
		}
	}
}

func TestUnsupportedErrorMessage(t *testing.T) {
	e := &UnsupportedError{Target: "cpp", NodeType: "ExternalCall", Category: CategoryExternal}
	want := "target cpp does not support ExternalCall (external-call)"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
