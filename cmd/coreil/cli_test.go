package main

import (
	"strings"
	"testing"
	"time"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/driver"
)

func TestParseTargetFlags(t *testing.T) {
	name, out, rest, err := parseTargetFlags([]string{"--target=go", "-o", "build", "main.coreil.json"})
	if err != nil {
		t.Fatalf("parseTargetFlags returned error: %v", err)
	}
	if name != "go" || out != "build" {
		t.Fatalf("parsed %q, %q", name, out)
	}
	if len(rest) != 1 || rest[0] != "main.coreil.json" {
		t.Fatalf("rest = %v", rest)
	}

	name, out, _, err = parseTargetFlags([]string{"--target", "rust"})
	if err != nil || name != "rust" || out != "." {
		t.Fatalf("spaced form: %q, %q, %v", name, out, err)
	}

	if _, _, _, err := parseTargetFlags([]string{"main.coreil.json"}); err == nil {
		t.Fatal("expected error for missing --target")
	}
	if _, _, _, err := parseTargetFlags([]string{"--target"}); err == nil {
		t.Fatal("expected error for dangling --target")
	}
}

func TestToolchainSpec(t *testing.T) {
	manifest := &driver.Manifest{
		Toolchains: map[string]driver.ToolchainSpec{
			"cpp": {Compile: []string{"clang++", "-o", "{bin}", "{source}"}, Run: []string{"{bin}"}},
		},
	}
	spec, err := toolchainSpec(manifest, "cpp")
	if err != nil {
		t.Fatalf("toolchainSpec returned error: %v", err)
	}
	if spec.Compile[0] != "clang++" {
		t.Fatalf("manifest override ignored: %v", spec.Compile)
	}

	spec, err = toolchainSpec(manifest, "python")
	if err != nil {
		t.Fatalf("default lookup failed: %v", err)
	}
	if len(spec.Run) == 0 {
		t.Fatalf("default python spec empty: %#v", spec)
	}

	if _, err := toolchainSpec(nil, "cobol"); err == nil {
		t.Fatal("expected error for unknown target")
	}
}

func TestExecTimeout(t *testing.T) {
	if got := execTimeout(nil); got != 30*time.Second {
		t.Fatalf("default timeout = %v", got)
	}
	manifest := &driver.Manifest{Timeout: driver.Duration(2 * time.Minute)}
	if got := execTimeout(manifest); got != 2*time.Minute {
		t.Fatalf("manifest timeout = %v", got)
	}
}

func TestFormatStmt(t *testing.T) {
	cases := []struct {
		stmt ast.Stmt
		want string
	}{
		{&ast.Let{Name: "x"}, "Let x = ..."},
		{&ast.Print{Args: []ast.Expr{&ast.Literal{Value: int64(1)}}}, "Print (1 arg)"},
		{&ast.Print{}, "Print (0 args)"},
		{&ast.FuncDef{Name: "f", Params: []string{"a", "b"}}, "FuncDef f(a, b)"},
		{&ast.TryCatch{CatchVar: "err"}, "TryCatch (catch_var=err)"},
		{&ast.ForEach{Var: "item"}, "ForEach item in ..."},
		{&ast.Break{}, "Break"},
		{&ast.HeapPush{}, "HeapPush"},
	}
	for _, tc := range cases {
		if got := formatStmt(tc.stmt); got != tc.want {
			t.Fatalf("formatStmt(%T) = %q, want %q", tc.stmt, got, tc.want)
		}
	}
}

func TestIndentBlock(t *testing.T) {
	if got := indentBlock(""); got != "    (empty)\n" {
		t.Fatalf("empty = %q", got)
	}
	got := indentBlock("a\nb\n")
	if got != "    a\n    b\n" {
		t.Fatalf("indentBlock = %q", got)
	}
	if !strings.HasSuffix(indentBlock("no newline"), "\n") {
		t.Fatal("missing trailing newline")
	}
}
