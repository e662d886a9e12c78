package interp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/runtime"
)

func runSource(t *testing.T, source string) (string, int) {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var out bytes.Buffer
	code := Run(doc, Options{Stdout: &out})
	return out.String(), code
}

func runSourceWithInput(t *testing.T, source, input string) (string, int) {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var out bytes.Buffer
	code := Run(doc, Options{Stdout: &out, Stdin: strings.NewReader(input)})
	return out.String(), code
}

func TestPrintFormatting(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Print", "args": [{"type": "Literal", "value": null}]},
			{"type": "Print", "args": [{"type": "Literal", "value": true}, {"type": "Literal", "value": false}]},
			{"type": "Print", "args": [{"type": "Literal", "value": 2.0}]},
			{"type": "Print", "args": [{"type": "Literal", "value": 3.5}]},
			{"type": "Print", "args": [{"type": "Literal", "value": "plain"}]},
			{"type": "Print", "args": [{"type": "Array", "items": [{"type": "Literal", "value": 1}, {"type": "Literal", "value": "s"}]}]},
			{"type": "Print", "args": [{"type": "Tuple", "items": [{"type": "Literal", "value": 1}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	want := "None\nTrue False\n2.0\n3.5\nplain\n[1, 's']\n(1,)\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestShortCircuitGuard(t *testing.T) {
	// The canonical guard: i < length(arr) and arr[i] > 0 must not index
	// when the left side is already false.
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "arr", "value": {"type": "Array", "items": [{"type": "Literal", "value": 5}]}},
			{"type": "Let", "name": "i", "value": {"type": "Literal", "value": 3}},
			{"type": "If",
			 "test": {"type": "Binary", "op": "and",
				"left": {"type": "Binary", "op": "<", "left": {"type": "Var", "name": "i"}, "right": {"type": "Length", "base": {"type": "Var", "name": "arr"}}},
				"right": {"type": "Binary", "op": ">", "left": {"type": "Index", "base": {"type": "Var", "name": "arr"}, "index": {"type": "Var", "name": "i"}}, "right": {"type": "Literal", "value": 0}}},
			 "then": [{"type": "Print", "args": [{"type": "Literal", "value": "in range"}]}],
			 "else": [{"type": "Print", "args": [{"type": "Literal", "value": "out of range"}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "out of range\n" {
		t.Errorf("output = %q", out)
	}
}

func TestLoopControlFlow(t *testing.T) {
	// Odd numbers until 7: continue skips evens, break stops at 7.
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "For", "var": "n", "iter": {"type": "Range", "from": {"type": "Literal", "value": 1}, "to": {"type": "Literal", "value": 100}},
			 "body": [
				{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Var", "name": "n"}, "right": {"type": "Literal", "value": 7}},
				 "then": [{"type": "Break"}]},
				{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Binary", "op": "%", "left": {"type": "Var", "name": "n"}, "right": {"type": "Literal", "value": 2}}, "right": {"type": "Literal", "value": 0}},
				 "then": [{"type": "Continue"}]},
				{"type": "Print", "args": [{"type": "Var", "name": "n"}]}
			 ]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "1\n3\n5\n" {
		t.Errorf("output = %q", out)
	}
}

func TestDivisionIsReal(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Print", "args": [{"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 7}, "right": {"type": "Literal", "value": 2}}]},
			{"type": "Print", "args": [{"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 6}, "right": {"type": "Literal", "value": 3}}]},
			{"type": "Print", "args": [{"type": "Binary", "op": "//", "left": {"type": "Literal", "value": -7}, "right": {"type": "Literal", "value": 2}}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "3.5\n2.0\n-4\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMapIterationOrder(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "m", "value": {"type": "Map", "items": [
				{"key": {"type": "Literal", "value": "b"}, "value": {"type": "Literal", "value": 1}},
				{"key": {"type": "Literal", "value": "a"}, "value": {"type": "Literal", "value": 2}},
				{"key": {"type": "Literal", "value": "c"}, "value": {"type": "Literal", "value": 3}}
			]}},
			{"type": "Set", "base": {"type": "Var", "name": "m"}, "key": {"type": "Literal", "value": "b"}, "value": {"type": "Literal", "value": 9}},
			{"type": "ForEach", "var": "k", "iter": {"type": "Var", "name": "m"},
			 "body": [{"type": "Print", "args": [{"type": "Var", "name": "k"}, {"type": "Get", "base": {"type": "Var", "name": "m"}, "key": {"type": "Var", "name": "k"}}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "b 9\na 2\nc 3\n" {
		t.Errorf("output = %q", out)
	}
}

func TestHeapStableTies(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "h", "value": {"type": "HeapNew"}},
			{"type": "HeapPush", "base": {"type": "Var", "name": "h"}, "priority": {"type": "Literal", "value": 1}, "value": {"type": "Literal", "value": "first"}},
			{"type": "HeapPush", "base": {"type": "Var", "name": "h"}, "priority": {"type": "Literal", "value": 1}, "value": {"type": "Literal", "value": "second"}},
			{"type": "HeapPush", "base": {"type": "Var", "name": "h"}, "priority": {"type": "Literal", "value": 0}, "value": {"type": "Literal", "value": "zero"}},
			{"type": "While", "test": {"type": "Binary", "op": ">", "left": {"type": "HeapSize", "base": {"type": "Var", "name": "h"}}, "right": {"type": "Literal", "value": 0}},
			 "body": [
				{"type": "HeapPop", "base": {"type": "Var", "name": "h"}, "target": "item"},
				{"type": "Print", "args": [{"type": "Var", "name": "item"}]}
			 ]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "zero\nfirst\nsecond\n" {
		t.Errorf("output = %q", out)
	}
}

func TestNegativeIndexing(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "arr", "value": {"type": "Array", "items": [
				{"type": "Literal", "value": 10}, {"type": "Literal", "value": 20}, {"type": "Literal", "value": 30}
			]}},
			{"type": "Print", "args": [{"type": "Index", "base": {"type": "Var", "name": "arr"}, "index": {"type": "Literal", "value": -1}}]},
			{"type": "Print", "args": [{"type": "Slice", "base": {"type": "Var", "name": "arr"}, "start": {"type": "Literal", "value": -2}, "end": {"type": "Literal", "value": 99}}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "30\n[20, 30]\n" {
		t.Errorf("output = %q", out)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "arr", "value": {"type": "Array", "items": [{"type": "Literal", "value": 1}]}},
			{"type": "Print", "args": [{"type": "Index", "base": {"type": "Var", "name": "arr"}, "index": {"type": "Literal", "value": -2}}]}
		]
	}`)
	if code != 1 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "runtime error: index -2 out of range for array of length 1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestThrowCatchFinally(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "TryCatch",
			 "body": [
				{"type": "Print", "args": [{"type": "Literal", "value": "before"}]},
				{"type": "Throw", "message": {"type": "Literal", "value": "boom"}},
				{"type": "Print", "args": [{"type": "Literal", "value": "unreachable"}]}
			 ],
			 "catch_var": "e",
			 "catch_body": [{"type": "Print", "args": [{"type": "Literal", "value": "caught:"}, {"type": "Var", "name": "e"}]}],
			 "finally_body": [{"type": "Print", "args": [{"type": "Literal", "value": "finally"}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "before\ncaught: boom\nfinally\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRuntimeErrorIsCatchable(t *testing.T) {
	// Internal faults and user throws share one message channel.
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "TryCatch",
			 "body": [{"type": "Print", "args": [{"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 0}}]}],
			 "catch_var": "e",
			 "catch_body": [{"type": "Print", "args": [{"type": "Var", "name": "e"}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "division by zero\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUncaughtThrowExitCode(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [{"type": "Throw", "message": {"type": "Literal", "value": "fatal"}}]
	}`)
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "runtime error: fatal\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFinallyRunsOnReturn(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "FuncDef", "name": "f", "params": [],
			 "body": [
				{"type": "TryCatch",
				 "body": [{"type": "Return", "value": {"type": "Literal", "value": 1}}],
				 "catch_var": "e",
				 "catch_body": [],
				 "finally_body": [{"type": "Print", "args": [{"type": "Literal", "value": "cleanup"}]}]}
			 ]},
			{"type": "Print", "args": [{"type": "Call", "name": "f", "args": []}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "cleanup\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFunctionsAndRecursion(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "FuncDef", "name": "fib", "params": ["n"],
			 "body": [
				{"type": "If", "test": {"type": "Binary", "op": "<", "left": {"type": "Var", "name": "n"}, "right": {"type": "Literal", "value": 2}},
				 "then": [{"type": "Return", "value": {"type": "Var", "name": "n"}}]},
				{"type": "Return", "value": {"type": "Binary", "op": "+",
					"left": {"type": "Call", "name": "fib", "args": [{"type": "Binary", "op": "-", "left": {"type": "Var", "name": "n"}, "right": {"type": "Literal", "value": 1}}]},
					"right": {"type": "Call", "name": "fib", "args": [{"type": "Binary", "op": "-", "left": {"type": "Var", "name": "n"}, "right": {"type": "Literal", "value": 2}}]}}}
			 ]},
			{"type": "Print", "args": [{"type": "Call", "name": "fib", "args": [{"type": "Literal", "value": 10}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "55\n" {
		t.Errorf("output = %q", out)
	}
}

func TestCallDepthLimit(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "FuncDef", "name": "loop", "params": [],
			 "body": [{"type": "Return", "value": {"type": "Call", "name": "loop", "args": []}}]},
			{"type": "Print", "args": [{"type": "Call", "name": "loop", "args": []}]}
		]
	}`)
	if code != 1 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "runtime error: maximum call depth exceeded\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSwitchDispatch(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "x", "value": {"type": "Literal", "value": 2}},
			{"type": "Switch", "test": {"type": "Var", "name": "x"},
			 "cases": [
				{"value": {"type": "Literal", "value": 1}, "body": [{"type": "Print", "args": [{"type": "Literal", "value": "one"}]}]},
				{"value": {"type": "Literal", "value": 2.0}, "body": [{"type": "Print", "args": [{"type": "Literal", "value": "two"}]}]}
			 ],
			 "default": [{"type": "Print", "args": [{"type": "Literal", "value": "other"}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	// 2 matches 2.0 because equality spans numeric kinds.
	if out != "two\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFunctionScopeIsolation(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "g", "value": {"type": "Literal", "value": "global"}},
			{"type": "FuncDef", "name": "f", "params": ["p"],
			 "body": [
				{"type": "Let", "name": "local", "value": {"type": "Literal", "value": 1}},
				{"type": "Print", "args": [{"type": "Var", "name": "p"}, {"type": "Var", "name": "g"}]}
			 ]},
			{"type": "Call", "name": "f", "args": [{"type": "Literal", "value": "arg"}]},
			{"type": "TryCatch",
			 "body": [{"type": "Print", "args": [{"type": "Var", "name": "local"}]}],
			 "catch_var": "e",
			 "catch_body": [{"type": "Print", "args": [{"type": "Literal", "value": "leaked? no"}]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "arg global\nleaked? no\n" {
		t.Errorf("output = %q", out)
	}
}

func TestInputBuiltin(t *testing.T) {
	out, code := runSourceWithInput(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "name", "value": {"type": "Call", "name": "input", "args": [{"type": "Literal", "value": "? "}]}},
			{"type": "Print", "args": [{"type": "Literal", "value": "hello"}, {"type": "Var", "name": "name"}]}
		]
	}`, "world\n")
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "? hello world\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSealedHelpersInLegacyDocuments(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-0.4",
		"body": [
			{"type": "Let", "name": "m", "value": {"type": "Map", "items": [
				{"key": {"type": "Literal", "value": "a"}, "value": {"type": "Literal", "value": 1}}
			]}},
			{"type": "Print", "args": [{"type": "Call", "name": "get_or_default", "args": [
				{"type": "Var", "name": "m"}, {"type": "Literal", "value": "missing"}, {"type": "Literal", "value": 42}
			]}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "42\n" {
		t.Errorf("output = %q", out)
	}
}

func TestUnsupportedVersionRejected(t *testing.T) {
	out, code := runSource(t, `{"version": "coreil-9.9", "body": []}`)
	if code != 1 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if !strings.Contains(out, "version must be one of") {
		t.Errorf("output = %q", out)
	}
}

func TestStringOps(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Print", "args": [{"type": "StringUpper", "base": {"type": "Literal", "value": "abc"}}]},
			{"type": "Print", "args": [{"type": "StringSplit", "base": {"type": "Literal", "value": "a,b,c"}, "delimiter": {"type": "Literal", "value": ","}}]},
			{"type": "Print", "args": [{"type": "Join", "sep": {"type": "Literal", "value": "-"}, "items": {"type": "Array", "items": [{"type": "Literal", "value": 1}, {"type": "Literal", "value": 2}]}}]},
			{"type": "Print", "args": [{"type": "StringReplace", "base": {"type": "Literal", "value": "aaa"}, "old": {"type": "Literal", "value": "a"}, "new": {"type": "Literal", "value": "b"}}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	want := "ABC\n['a', 'b', 'c']\n1-2\nbbb\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestJsonRoundTrip(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "v", "value": {"type": "JsonParse", "source": {"type": "Literal", "value": "{\"b\": 1, \"a\": [true, null, 2.5]}"}}},
			{"type": "Print", "args": [{"type": "Keys", "base": {"type": "Var", "name": "v"}}]},
			{"type": "Print", "args": [{"type": "JsonStringify", "value": {"type": "Var", "name": "v"}}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	want := "['b', 'a']\n{\"b\": 1, \"a\": [true, null, 2.5]}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRegexOps(t *testing.T) {
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Print", "args": [{"type": "RegexMatch", "string": {"type": "Literal", "value": "Hello"}, "pattern": {"type": "Literal", "value": "^h"}, "flags": "i"}]},
			{"type": "Print", "args": [{"type": "RegexFindAll", "string": {"type": "Literal", "value": "a1b22c"}, "pattern": {"type": "Literal", "value": "[0-9]+"}}]},
			{"type": "Print", "args": [{"type": "RegexReplace", "string": {"type": "Literal", "value": "a1b2"}, "pattern": {"type": "Literal", "value": "[0-9]"}, "replacement": {"type": "Literal", "value": "#"}}]},
			{"type": "Print", "args": [{"type": "RegexSplit", "string": {"type": "Literal", "value": "a,b,c"}, "pattern": {"type": "Literal", "value": ","}, "maxsplit": 1}]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	want := "True\n['1', '22']\na#b#\n['a', 'b,c']\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestStepCallback(t *testing.T) {
	doc, err := ast.DecodeDocument([]byte(`{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "x", "value": {"type": "Literal", "value": 1}},
			{"type": "Print", "args": [{"type": "Var", "name": "x"}]}
		]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var steps []string
	var out bytes.Buffer
	code := Run(doc, Options{
		Stdout: &out,
		OnStep: func(stmt ast.Stmt, index int, locals, globals map[string]runtime.Value, functions []string, callDepth int) {
			steps = append(steps, stmt.TypeName())
			if callDepth != 0 {
				t.Errorf("callDepth = %d at top level", callDepth)
			}
			if locals != nil {
				t.Errorf("locals non-nil at top level")
			}
		},
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if diff := cmp.Diff([]string{"Let", "Print"}, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestForEachMutationVisible(t *testing.T) {
	// Appending during iteration is observed, same as iterating the live
	// list in the reference semantics.
	out, code := runSource(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Let", "name": "arr", "value": {"type": "Array", "items": [{"type": "Literal", "value": 1}, {"type": "Literal", "value": 2}]}},
			{"type": "ForEach", "var": "x", "iter": {"type": "Var", "name": "arr"},
			 "body": [
				{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Var", "name": "x"}, "right": {"type": "Literal", "value": 1}},
				 "then": [{"type": "Push", "base": {"type": "Var", "name": "arr"}, "value": {"type": "Literal", "value": 3}}]},
				{"type": "Print", "args": [{"type": "Var", "name": "x"}]}
			 ]}
		]
	}`)
	if code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if out != "1\n2\n3\n" {
		t.Errorf("output = %q", out)
	}
}
