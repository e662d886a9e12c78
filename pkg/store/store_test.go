package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "artifacts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := tempStore(t)
	in := Artifact{
		Target:   "cpp",
		Digest:   "abc123",
		Filename: "main.cpp",
		Source:   []byte("int main() {}\n"),
		Support:  map[string][]byte{"coreil_runtime.hpp": []byte("#pragma once\n")},
	}
	if err := s.Put(in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	out, err := s.Get("cpp", "abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.SavedAt.IsZero() {
		t.Error("Get returned a zero SavedAt")
	}
	in.SavedAt = out.SavedAt
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("artifact round trip (-want +got):\n%s", diff)
	}
}

func TestGetMissingArtifact(t *testing.T) {
	s := tempStore(t)
	_, err := s.Get("go", "nope")
	if !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Get = %v, want ErrNoArtifact", err)
	}
}

func TestPutRequiresKey(t *testing.T) {
	s := tempStore(t)
	if err := s.Put(Artifact{Target: "go"}); err == nil {
		t.Error("Put accepted an artifact without a digest")
	}
	if err := s.Put(Artifact{Digest: "abc"}); err == nil {
		t.Error("Put accepted an artifact without a target")
	}
}

func TestPutReplacesExisting(t *testing.T) {
	s := tempStore(t)
	first := Artifact{Target: "rust", Digest: "d1", Source: []byte("old")}
	second := Artifact{Target: "rust", Digest: "d1", Source: []byte("new")}
	if err := s.Put(first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	out, err := s.Get("rust", "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(out.Source) != "new" {
		t.Errorf("Source = %q, want %q", out.Source, "new")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := tempStore(t)
	if err := s.Put(Artifact{Target: "go", Digest: "d2", Source: []byte("x")}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete("go", "d2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("go", "d2"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Get("go", "d2"); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Get after delete = %v, want ErrNoArtifact", err)
	}
}

func TestTargetsListsOnlyMatchingDigest(t *testing.T) {
	s := tempStore(t)
	for _, a := range []Artifact{
		{Target: "cpp", Digest: "shared", Source: []byte("a")},
		{Target: "go", Digest: "shared", Source: []byte("b")},
		{Target: "rust", Digest: "other", Source: []byte("c")},
	} {
		if err := s.Put(a); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	targets, err := s.Targets("shared")
	if err != nil {
		t.Fatalf("Targets: %v", err)
	}
	if diff := cmp.Diff([]string{"cpp", "go"}, targets); diff != "" {
		t.Errorf("Targets (-want +got):\n%s", diff)
	}
}

func TestDocumentDigestIsStable(t *testing.T) {
	source := `{"version": "coreil-1.10.5", "body": [{"type": "Print", "args": [{"type": "Literal", "value": "hi"}]}]}`
	first, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	second, err := ast.DecodeDocument([]byte(source))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d1, err := DocumentDigest(first)
	if err != nil {
		t.Fatalf("DocumentDigest: %v", err)
	}
	d2, err := DocumentDigest(second)
	if err != nil {
		t.Fatalf("DocumentDigest: %v", err)
	}
	if d1 != d2 {
		t.Errorf("digests differ: %s vs %s", d1, d2)
	}
	if len(d1) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(d1))
	}
}
