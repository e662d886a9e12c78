package target

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
	"github.com/colmjr/English-compiler-sub000/pkg/emit"
	"github.com/colmjr/English-compiler-sub000/pkg/store"
)

func decode(t *testing.T, source string) *ast.Document {
	t.Helper()
	doc, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultSpecCoversAllEmitTargets(t *testing.T) {
	for _, name := range emit.Targets() {
		spec, ok := DefaultSpec(name)
		if !ok {
			t.Errorf("no default spec for target %q", name)
			continue
		}
		if len(spec.Run) == 0 {
			t.Errorf("target %q has no run command", name)
		}
	}
	if _, ok := DefaultSpec("cobol"); ok {
		t.Error("DefaultSpec invented a toolchain for an unknown target")
	}
}

func TestTimeoutErrorMessage(t *testing.T) {
	e := &TimeoutError{Target: "rust", Phase: "compile", Limit: 30 * time.Second}
	want := "target rust: compile exceeded 30s"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestRunnerReportsProgramExitCode(t *testing.T) {
	artifact := &store.Artifact{
		Target:   "fake",
		Digest:   "d",
		Filename: "main.txt",
		Source:   []byte("payload\n"),
	}
	var stdout bytes.Buffer
	r := &Runner{Dir: t.TempDir(), Stdout: &stdout}
	spec := Spec{Run: []string{"sh", "-c", "cat {source}; exit 3"}}
	code, err := r.Run(context.Background(), artifact, spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if stdout.String() != "payload\n" {
		t.Errorf("stdout = %q, want the artifact content", stdout.String())
	}
}

func TestRunnerWritesSupportFiles(t *testing.T) {
	artifact := &store.Artifact{
		Target:   "fake",
		Digest:   "d",
		Filename: "main.txt",
		Source:   []byte("main\n"),
		Support:  map[string][]byte{"helper.txt": []byte("support\n")},
	}
	var stdout bytes.Buffer
	r := &Runner{Dir: t.TempDir(), Stdout: &stdout}
	spec := Spec{Run: []string{"sh", "-c", "cat helper.txt"}}
	code, err := r.Run(context.Background(), artifact, spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if stdout.String() != "support\n" {
		t.Errorf("stdout = %q, want support file content", stdout.String())
	}
}

func TestRunnerDeadlineIsATimeoutError(t *testing.T) {
	artifact := &store.Artifact{Target: "fake", Digest: "d", Filename: "main.txt", Source: []byte("x")}
	r := &Runner{Dir: t.TempDir()}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, artifact, Spec{Run: []string{"sleep", "10"}})
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Run = %v, want *TimeoutError", err)
	}
	if timeout.Phase != "run" {
		t.Errorf("Phase = %q, want %q", timeout.Phase, "run")
	}
}

func TestRunnerCompileFailureIsNotATimeout(t *testing.T) {
	artifact := &store.Artifact{Target: "fake", Digest: "d", Filename: "main.txt", Source: []byte("x")}
	r := &Runner{Dir: t.TempDir()}
	spec := Spec{
		Compile: []string{"sh", "-c", "echo broken >&2; exit 1"},
		Run:     []string{"true"},
	}
	_, err := r.Run(context.Background(), artifact, spec)
	if err == nil {
		t.Fatal("Run succeeded with a failing compile step")
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		t.Fatalf("compile failure reported as timeout: %v", err)
	}
	if !strings.Contains(err.Error(), "compile failed") || !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not carry the compiler output", err)
	}
}

const plainDoc = `{
	"version": "coreil-1.10.5",
	"body": [{"type": "Print", "args": [{"type": "Literal", "value": "hi"}]}]
}`

const methodDoc = `{
	"version": "coreil-1.10.5",
	"body": [
		{"type": "Let", "name": "s", "value":
			{"type": "MethodCall", "object": {"type": "Literal", "value": "hi"}, "method": "encode", "args": []}}
	]
}`

func TestPrepareCachesFreshEmission(t *testing.T) {
	st := tempStore(t)
	doc := decode(t, plainDoc)
	artifact, err := Prepare(doc, "go", st)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if artifact.Filename != "main.go" {
		t.Errorf("Filename = %q", artifact.Filename)
	}
	digest, err := store.DocumentDigest(doc)
	if err != nil {
		t.Fatalf("DocumentDigest: %v", err)
	}
	cached, err := st.Get("go", digest)
	if err != nil {
		t.Fatalf("Get after Prepare: %v", err)
	}
	if !bytes.Equal(cached.Source, artifact.Source) {
		t.Error("cached source differs from the returned artifact")
	}
}

func TestPrepareFallsBackToCachedArtifact(t *testing.T) {
	st := tempStore(t)
	doc := decode(t, methodDoc)
	digest, err := store.DocumentDigest(doc)
	if err != nil {
		t.Fatalf("DocumentDigest: %v", err)
	}
	seeded := store.Artifact{
		Target:   "cpp",
		Digest:   digest,
		Filename: "main.cpp",
		Source:   []byte("// earlier emission\n"),
	}
	if err := st.Put(seeded); err != nil {
		t.Fatalf("Put: %v", err)
	}
	artifact, err := Prepare(doc, "cpp", st)
	if err != nil {
		t.Fatalf("Prepare did not fall back: %v", err)
	}
	if !bytes.Equal(artifact.Source, seeded.Source) {
		t.Errorf("fallback returned %q, want the seeded artifact", artifact.Source)
	}
}

func TestPrepareWithoutCacheSurfacesTheRefusal(t *testing.T) {
	doc := decode(t, methodDoc)
	_, err := Prepare(doc, "cpp", nil)
	var unsupported *emit.UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Prepare = %v, want *emit.UnsupportedError", err)
	}
	if unsupported.Category != emit.CategoryMethod {
		t.Errorf("Category = %q", unsupported.Category)
	}
}
