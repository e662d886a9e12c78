package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/driver"
	"github.com/colmjr/English-compiler-sub000/pkg/interp"
	"github.com/colmjr/English-compiler-sub000/pkg/lower"
	"github.com/colmjr/English-compiler-sub000/pkg/optimize"
	"github.com/colmjr/English-compiler-sub000/pkg/store"
	"github.com/colmjr/English-compiler-sub000/pkg/target"
)

func toolchainSpec(manifest *driver.Manifest, targetName string) (target.Spec, error) {
	if manifest != nil {
		if tc, ok := manifest.Toolchains[targetName]; ok {
			return target.Spec{Compile: tc.Compile, Run: tc.Run}, nil
		}
	}
	spec, ok := target.DefaultSpec(targetName)
	if !ok {
		return target.Spec{}, fmt.Errorf("no toolchain for target %q", targetName)
	}
	return spec, nil
}

func execTimeout(manifest *driver.Manifest) time.Duration {
	if manifest != nil && manifest.Timeout > 0 {
		return time.Duration(manifest.Timeout)
	}
	return 30 * time.Second
}

func runExec(args []string) int {
	check := false
	filtered := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--check" {
			check = true
			continue
		}
		filtered = append(filtered, arg)
	}

	targetName, _, rest, err := parseTargetFlags(filtered)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	doc, manifest, err := loadProgram(rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	prepared := optimize.Optimize(lower.Lower(doc))

	spec, err := toolchainSpec(manifest, targetName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	st := openStore(manifest)
	if st != nil {
		defer st.Close()
	}
	artifact, err := target.Prepare(prepared, targetName, st)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), execTimeout(manifest))
	defer cancel()

	if check {
		return runParityCheck(ctx, doc, artifact, spec, targetName)
	}

	runner := &target.Runner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	code, err := runner.Run(ctx, artifact, spec)
	if err != nil {
		var timeout *target.TimeoutError
		if errors.As(err, &timeout) {
			fmt.Fprintln(os.Stderr, timeout)
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return code
}

// runParityCheck runs the interpreter and the compiled target on the
// same document and compares observable behavior: stdout bytes and the
// process exit code.
func runParityCheck(ctx context.Context, doc *ast.Document, artifact *store.Artifact, spec target.Spec, targetName string) int {
	var want bytes.Buffer
	wantCode := interp.Run(doc, interp.Options{Stdout: &want, Stdin: bytes.NewReader(nil)})

	var got bytes.Buffer
	runner := &target.Runner{Stdin: bytes.NewReader(nil), Stdout: &got, Stderr: os.Stderr}
	gotCode, err := runner.Run(ctx, artifact, spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if gotCode == wantCode && got.String() == want.String() {
		fmt.Printf("parity ok: %s matches the interpreter (exit %d, %d bytes)\n",
			targetName, wantCode, want.Len())
		return 0
	}
	fmt.Printf("parity mismatch for %s:\n", targetName)
	if gotCode != wantCode {
		fmt.Printf("  exit code: interpreter %d, target %d\n", wantCode, gotCode)
	}
	if got.String() != want.String() {
		fmt.Printf("  interpreter output (%d bytes):\n%s", want.Len(), indentBlock(want.String()))
		fmt.Printf("  target output (%d bytes):\n%s", got.Len(), indentBlock(got.String()))
	}
	return 1
}

func indentBlock(s string) string {
	if s == "" {
		return "    (empty)\n"
	}
	var out bytes.Buffer
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		out.WriteString("    ")
		out.WriteString(line)
	}
	if !strings.HasSuffix(out.String(), "\n") {
		out.WriteString("\n")
	}
	return out.String()
}
