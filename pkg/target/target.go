// Package target compiles and runs emitted programs with the target
// language's own toolchain. Every subprocess runs under a
// caller-supplied context; hitting the deadline is reported as a
// *TimeoutError so callers can tell a slow toolchain from a broken
// program.
package target

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/emit"
	"github.com/colmjr/English-compiler-sub000/pkg/store"
)

// TimeoutError reports a toolchain subprocess killed at its deadline.
type TimeoutError struct {
	Target string
	Phase  string // "compile" or "run"
	Limit  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("target %s: %s exceeded %v", e.Target, e.Phase, e.Limit)
}

// Spec is the toolchain for one target: an optional compile step and a
// run command. "{source}" and "{bin}" in the argv expand to the main
// source file and the build output inside the work directory.
type Spec struct {
	Compile []string
	Run     []string
}

// DefaultSpec returns the built-in toolchain for a target name. The
// driver manifest can override these per project.
func DefaultSpec(target string) (Spec, bool) {
	switch target {
	case "go":
		return Spec{
			Compile: []string{"go", "build", "-o", "{bin}", "{source}", "coreil_runtime.go"},
			Run:     []string{"{bin}"},
		}, true
	case "python":
		return Spec{Run: []string{"python3", "{source}"}}, true
	case "cpp":
		return Spec{
			Compile: []string{"c++", "-std=c++17", "-O2", "-o", "{bin}", "{source}"},
			Run:     []string{"{bin}"},
		}, true
	case "rust":
		return Spec{
			Compile: []string{"rustc", "--edition", "2021", "-O", "-o", "{bin}", "{source}"},
			Run:     []string{"{bin}"},
		}, true
	case "assemblyscript":
		return Spec{
			Compile: []string{"asc", "{source}", "--outFile", "{bin}", "--exportStart", "main"},
			Run:     []string{"wasmtime", "{bin}"},
		}, true
	}
	return Spec{}, false
}

// Prepare produces the artifact to run for a document on a target. A
// fresh emission is cached in st; when the backend refuses a Tier-2
// node and st holds an artifact from an earlier emission of the same
// document, that cached artifact is returned instead.
func Prepare(doc *ast.Document, targetName string, st *store.Store) (*store.Artifact, error) {
	backend, err := emit.For(targetName)
	if err != nil {
		return nil, err
	}
	digest := ""
	if st != nil {
		if digest, err = store.DocumentDigest(doc); err != nil {
			return nil, err
		}
	}
	out, emitErr := backend.Emit(doc)
	if emitErr != nil {
		var unsupported *emit.UnsupportedError
		if errors.As(emitErr, &unsupported) && st != nil {
			cached, getErr := st.Get(targetName, digest)
			if getErr == nil {
				return &cached, nil
			}
		}
		return nil, emitErr
	}
	artifact := &store.Artifact{
		Target:   targetName,
		Digest:   digest,
		Filename: out.Filename,
		Source:   out.Source,
		Support:  out.Support,
	}
	if st != nil {
		if err := st.Put(*artifact); err != nil {
			return nil, fmt.Errorf("cache artifact: %w", err)
		}
	}
	return artifact, nil
}

// WriteArtifact writes the artifact's source and support files into
// dir and returns the path of the main source file.
func WriteArtifact(dir string, a *store.Artifact) (string, error) {
	mainPath := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(mainPath, a.Source, 0o600); err != nil {
		return "", err
	}
	for name, content := range a.Support {
		if err := os.WriteFile(filepath.Join(dir, name), content, 0o600); err != nil {
			return "", err
		}
	}
	return mainPath, nil
}

// Runner executes artifacts in a scratch directory.
type Runner struct {
	// Dir is the work directory; empty means a fresh temp directory
	// per Run call.
	Dir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func expandArgv(argv []string, source, bin string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		arg = strings.ReplaceAll(arg, "{source}", source)
		arg = strings.ReplaceAll(arg, "{bin}", bin)
		out[i] = arg
	}
	return out
}

func deadlineLimit(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline).Round(time.Millisecond)
	}
	return 0
}

// Run writes the artifact, compiles it when the spec has a compile
// step, and runs it, returning the program's exit code. A context
// deadline surfaces as *TimeoutError; compile failures and missing
// toolchains surface as ordinary errors.
func (r *Runner) Run(ctx context.Context, a *store.Artifact, spec Spec) (int, error) {
	dir := r.Dir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "coreil-"+a.Target+"-")
		if err != nil {
			return -1, err
		}
		defer os.RemoveAll(dir)
	}
	source, err := WriteArtifact(dir, a)
	if err != nil {
		return -1, fmt.Errorf("write artifact: %w", err)
	}
	bin := filepath.Join(dir, "program")

	limit := deadlineLimit(ctx)
	if len(spec.Compile) > 0 {
		argv := expandArgv(spec.Compile, source, bin)
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Dir = dir
		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output
		if err := cmd.Run(); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return -1, &TimeoutError{Target: a.Target, Phase: "compile", Limit: limit}
			}
			return -1, fmt.Errorf("target %s: compile failed: %w\n%s", a.Target, err, output.Bytes())
		}
	}

	if len(spec.Run) == 0 {
		return -1, fmt.Errorf("target %s: spec has no run command", a.Target)
	}
	argv := expandArgv(spec.Run, source, bin)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	err = cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return -1, &TimeoutError{Target: a.Target, Phase: "run", Limit: limit}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("target %s: run failed: %w", a.Target, err)
	}
	return 0, nil
}
