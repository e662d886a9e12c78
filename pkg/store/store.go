// Package store persists emitted artifacts in a bbolt database. When a
// backend refuses a document (an unsupported Tier-2 node for that
// target), the driver falls back to the artifact cached by an earlier
// successful emit of the same document, keyed by target name and
// document digest.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/colmjr/English-compiler-sub000/pkg/ast"
)

const bucketArtifact = "artifact"

// ErrNoArtifact is returned by Get when nothing is cached for the
// target and digest.
var ErrNoArtifact = errors.New("no cached artifact")

// Artifact is one cached emission: the main source file plus any
// runtime support files the backend ships alongside it.
type Artifact struct {
	Target   string            `json:"target"`
	Digest   string            `json:"digest"`
	Filename string            `json:"filename"`
	Source   []byte            `json:"source"`
	Support  map[string][]byte `json:"support,omitempty"`
	SavedAt  time.Time         `json:"saved_at"`
}

// Store is a handle to the artifact database. Open one per process;
// bbolt serializes writers internally.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketArtifact))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize artifact store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DocumentDigest returns the hex SHA-256 of the document's canonical
// encoding. Two documents that encode identically share artifacts.
func DocumentDigest(doc *ast.Document) (string, error) {
	encoded, err := doc.Encode()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

func artifactKey(target, digest string) []byte {
	return []byte(target + "\x00" + digest)
}

// Put caches an artifact, replacing any previous one for the same
// target and digest.
func (s *Store) Put(a Artifact) error {
	if a.Target == "" || a.Digest == "" {
		return errors.New("artifact needs a target and a digest")
	}
	if a.SavedAt.IsZero() {
		a.SavedAt = time.Now()
	}
	encoded, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketArtifact))
		return b.Put(artifactKey(a.Target, a.Digest), encoded)
	})
}

// Get returns the cached artifact for the target and digest, or
// ErrNoArtifact.
func (s *Store) Get(target, digest string) (Artifact, error) {
	var a Artifact
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketArtifact))
		v := b.Get(artifactKey(target, digest))
		if v == nil {
			return ErrNoArtifact
		}
		return json.Unmarshal(v, &a)
	})
	return a, err
}

// Delete removes the cached artifact; deleting a missing one is not an
// error.
func (s *Store) Delete(target, digest string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketArtifact))
		return b.Delete(artifactKey(target, digest))
	})
}

// Targets lists the target names that have a cached artifact for the
// digest, in key order.
func (s *Store) Targets(digest string) ([]string, error) {
	var targets []string
	suffix := []byte("\x00" + digest)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketArtifact))
		return b.ForEach(func(k, v []byte) error {
			if len(k) > len(suffix) && string(k[len(k)-len(suffix):]) == string(suffix) {
				targets = append(targets, string(k[:len(k)-len(suffix)]))
			}
			return nil
		})
	})
	return targets, err
}
