package emit

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colmjr/English-compiler-sub000/pkg/interp"
)

// Comparisons and arithmetic must go through the prelude helpers;
// CPython's native operators coerce bools to ints and word their
// errors differently.
func TestPythonOperatorsRouteThroughPrelude(t *testing.T) {
	doc := decode(t, `{
		"version": "coreil-1.10.5",
		"body": [
			{"type": "Print", "args": [{"type": "Binary", "op": "==", "left": {"type": "Literal", "value": true}, "right": {"type": "Literal", "value": 1}}]},
			{"type": "Print", "args": [{"type": "Binary", "op": "<=", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 2}}]},
			{"type": "Print", "args": [{"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 2}}]},
			{"type": "Switch", "test": {"type": "Literal", "value": 1}, "cases": [
				{"value": {"type": "Literal", "value": true}, "body": []}
			]}
		]
	}`)
	b, err := For("python")
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	out, err := b.Emit(doc)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	source := string(out.Source)
	for _, mark := range []string{"_eq(True, 1)", "_le(1, 2)", "_div(1, 2)", "_eq(_sw0, True):"} {
		if !strings.Contains(source, mark) {
			t.Errorf("source does not contain %q", mark)
		}
	}
}

// runPython3 writes an emitted program to a scratch directory and
// executes it, returning stdout and the exit code. Anything on stderr
// is a traceback the prelude failed to frame, so it fails the test.
func runPython3(t *testing.T, source string) (string, int) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.py")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("python3", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if stderr.Len() > 0 {
		t.Fatalf("python3 wrote to stderr:\n%s", stderr.String())
	}
	if err != nil {
		if _, isExit := err.(*exec.ExitError); !isExit {
			t.Fatalf("python3: %v", err)
		}
	}
	return stdout.String(), cmd.ProcessState.ExitCode()
}

// TestPythonBackendMatchesInterpreter runs the same document through
// the reference interpreter and the emitted Python program and demands
// identical stdout and exit codes. The scenarios lean on the places
// where CPython's native semantics diverge from the evaluator's.
func TestPythonBackendMatchesInterpreter(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	cases := []struct {
		name string
		doc  string
	}{
		{
			name: "bool and int are distinct kinds",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Print", "args": [{"type": "Binary", "op": "==", "left": {"type": "Literal", "value": true}, "right": {"type": "Literal", "value": 1}}]},
				{"type": "Print", "args": [{"type": "Binary", "op": "!=", "left": {"type": "Literal", "value": false}, "right": {"type": "Literal", "value": 0}}]},
				{"type": "TryCatch",
					"body": [{"type": "Print", "args": [{"type": "Binary", "op": "<", "left": {"type": "Literal", "value": true}, "right": {"type": "Literal", "value": 2}}]}],
					"catch_var": "e",
					"catch_body": [{"type": "Print", "args": [{"type": "Var", "name": "e"}]}]}
			]}`,
		},
		{
			name: "float text stays in fixed notation",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Print", "args": [{"type": "Literal", "value": 0.00001}]},
				{"type": "Print", "args": [{"type": "Literal", "value": 1e16}]},
				{"type": "Print", "args": [{"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 7}, "right": {"type": "Literal", "value": 2}}]},
				{"type": "Print", "args": [{"type": "Literal", "value": 3.0}]}
			]}`,
		},
		{
			name: "mixed-kind addition fails with the shared framing",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Print", "args": [{"type": "Literal", "value": "start"}]},
				{"type": "Let", "name": "s", "value": {"type": "Binary", "op": "+", "left": {"type": "Literal", "value": "a"}, "right": {"type": "Literal", "value": 0}}}
			]}`,
		},
		{
			name: "division by zero is catchable with the same message",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "TryCatch",
					"body": [{"type": "Let", "name": "x", "value": {"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 0}}}],
					"catch_var": "e",
					"catch_body": [{"type": "Print", "args": [{"type": "Var", "name": "e"}]}]},
				{"type": "Print", "args": [{"type": "Binary", "op": "//", "left": {"type": "Literal", "value": -7}, "right": {"type": "Literal", "value": 2}}]},
				{"type": "Print", "args": [{"type": "Binary", "op": "%", "left": {"type": "Literal", "value": -7}, "right": {"type": "Literal", "value": 3}}]}
			]}`,
		},
		{
			name: "bool map keys unify with their integer values",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Let", "name": "m", "value": {"type": "Map", "items": [
					{"key": {"type": "Literal", "value": true}, "value": {"type": "Literal", "value": 1}}
				]}},
				{"type": "Set", "base": {"type": "Var", "name": "m"}, "key": {"type": "Literal", "value": 1}, "value": {"type": "Literal", "value": 2}},
				{"type": "Print", "args": [{"type": "Get", "base": {"type": "Var", "name": "m"}, "key": {"type": "Literal", "value": true}}]},
				{"type": "Print", "args": [{"type": "Keys", "base": {"type": "Var", "name": "m"}}]},
				{"type": "Print", "args": [{"type": "Length", "base": {"type": "Var", "name": "m"}}]}
			]}`,
		},
		{
			name: "loops with break continue and short-circuit guards",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Let", "name": "total", "value": {"type": "Literal", "value": 0}},
				{"type": "For", "var": "i", "iter": {"type": "Range", "from": {"type": "Literal", "value": 0}, "to": {"type": "Literal", "value": 10}}, "body": [
					{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Binary", "op": "%", "left": {"type": "Var", "name": "i"}, "right": {"type": "Literal", "value": 2}}, "right": {"type": "Literal", "value": 0}},
						"then": [{"type": "Continue"}]},
					{"type": "If", "test": {"type": "Binary", "op": "==", "left": {"type": "Var", "name": "i"}, "right": {"type": "Literal", "value": 5}},
						"then": [{"type": "Break"}]},
					{"type": "Assign", "name": "total", "value": {"type": "Binary", "op": "+", "left": {"type": "Var", "name": "total"}, "right": {"type": "Var", "name": "i"}}}
				]},
				{"type": "Print", "args": [{"type": "Var", "name": "total"}]},
				{"type": "Print", "args": [{"type": "Binary", "op": "and", "left": {"type": "Literal", "value": 0}, "right": {"type": "Binary", "op": "/", "left": {"type": "Literal", "value": 1}, "right": {"type": "Literal", "value": 0}}}]}
			]}`,
		},
		{
			name: "heap pops ties in insertion order",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Let", "name": "h", "value": {"type": "HeapNew"}},
				{"type": "HeapPush", "base": {"type": "Var", "name": "h"}, "priority": {"type": "Literal", "value": 2}, "value": {"type": "Literal", "value": "late"}},
				{"type": "HeapPush", "base": {"type": "Var", "name": "h"}, "priority": {"type": "Literal", "value": 1}, "value": {"type": "Literal", "value": "first"}},
				{"type": "HeapPush", "base": {"type": "Var", "name": "h"}, "priority": {"type": "Literal", "value": 1}, "value": {"type": "Literal", "value": "second"}},
				{"type": "HeapPop", "base": {"type": "Var", "name": "h"}, "target": "v"},
				{"type": "Print", "args": [{"type": "Var", "name": "v"}]},
				{"type": "HeapPop", "base": {"type": "Var", "name": "h"}, "target": "v"},
				{"type": "Print", "args": [{"type": "Var", "name": "v"}]},
				{"type": "HeapPop", "base": {"type": "Var", "name": "h"}, "target": "v"},
				{"type": "Print", "args": [{"type": "Var", "name": "v"}]}
			]}`,
		},
		{
			name: "negative indexing resolves and overruns fail alike",
			doc: `{"version": "coreil-1.10.5", "body": [
				{"type": "Let", "name": "a", "value": {"type": "Array", "items": [
					{"type": "Literal", "value": 1}, {"type": "Literal", "value": 2}, {"type": "Literal", "value": 3}
				]}},
				{"type": "Print", "args": [{"type": "Index", "base": {"type": "Var", "name": "a"}, "index": {"type": "Literal", "value": -1}}]},
				{"type": "TryCatch",
					"body": [{"type": "Print", "args": [{"type": "Index", "base": {"type": "Var", "name": "a"}, "index": {"type": "Literal", "value": -4}}]}],
					"catch_var": "e",
					"catch_body": [{"type": "Print", "args": [{"type": "Var", "name": "e"}]}]}
			]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := decode(t, tc.doc)
			var ref bytes.Buffer
			refCode := interp.Run(doc, interp.Options{Stdout: &ref})

			b, err := For("python")
			if err != nil {
				t.Fatalf("For: %v", err)
			}
			out, err := b.Emit(doc)
			if err != nil {
				t.Fatalf("Emit: %v", err)
			}
			got, gotCode := runPython3(t, string(out.Source))
			if got != ref.String() || gotCode != refCode {
				t.Errorf("python exited %d with:\n%s\ninterpreter exited %d with:\n%s",
					gotCode, got, refCode, ref.String())
			}
		})
	}
}
