package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Fetcher turns a git module source into a local checkout under the
// project cache directory. Checkouts are keyed by pinned version so a
// resolved revision is cloned at most once.
type Fetcher struct {
	cacheDir string
}

// NewFetcher returns a fetcher rooted at the manifest cache directory,
// or nil when no cache directory is configured.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		return nil
	}
	return &Fetcher{cacheDir: cacheDir}
}

// Fetch ensures the module's repository is checked out and returns the
// path of the module document inside it plus a lock entry pinning the
// exact commit.
func (f *Fetcher) Fetch(name string, src ModuleSource) (string, *LockedModule, error) {
	if f == nil {
		return "", nil, fmt.Errorf("module %q: git fetcher unavailable", name)
	}
	url := strings.TrimSpace(src.Git)
	if url == "" {
		return "", nil, fmt.Errorf("module %q: git URL required", name)
	}

	baseDir := filepath.Join(f.cacheDir, "modules", sanitizeSegment(name))
	version, commit, err := ensureCheckout(baseDir, url, src)
	if err != nil {
		return "", nil, err
	}

	checkoutDir := filepath.Join(baseDir, sanitizeSegment(version))
	docPath := filepath.Join(checkoutDir, filepath.FromSlash(src.File))
	data, err := os.ReadFile(docPath)
	if err != nil {
		return "", nil, fmt.Errorf("module %q: read %s: %w", name, src.File, err)
	}

	sum := sha256.Sum256(data)
	entry := &LockedModule{
		Name:     name,
		Source:   fmt.Sprintf("git+%s@%s", url, commit),
		Checksum: hex.EncodeToString(sum[:]),
	}
	return docPath, entry, nil
}

func ensureCheckout(baseDir, url string, src ModuleSource) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	revision, descriptor, err := gitRevision(src)
	if err != nil {
		return "", "", err
	}

	// An explicit rev is already pinned; reuse its checkout without
	// touching the network.
	if rev := strings.TrimSpace(src.Rev); rev != "" {
		existing := filepath.Join(baseDir, sanitizeSegment(rev))
		if _, err := os.Stat(existing); err == nil {
			return rev, rev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL:               url,
		Depth:             0,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := pinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizeSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

func pinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevision(src ModuleSource) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(src.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(src.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(src.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git modules require rev, tag, or branch")
}

func sanitizeSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	result := b.String()
	if result == "" {
		return "head"
	}
	return result
}
