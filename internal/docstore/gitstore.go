package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitStore implements Store on top of a local git repository. Each write is a
// commit; the blob hash of the file at HEAD serves as the version token, the
// same shape the contents-API backend uses. Intended for offline use and
// integration tests, where the writers share one checkout.
type GitStore struct {
	mu   sync.Mutex
	repo *git.Repository
	root string
}

// NewGitStore opens an existing repository at repoPath, or initializes one.
func NewGitStore(repoPath string) (*GitStore, error) {
	repo, err := git.PlainOpen(repoPath)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(repoPath, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open git store %s: %w", repoPath, err)
	}
	return &GitStore{repo: repo, root: repoPath}, nil
}

// Exists reports whether a document exists at the path.
func (s *GitStore) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := s.readLocked(path)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Read returns the committed document content and its blob hash at HEAD.
func (s *GitStore) Read(ctx context.Context, path string) (string, Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(path)
}

func (s *GitStore) readLocked(path string) (string, Version, error) {
	head, err := s.repo.Head()
	if err != nil {
		// Empty repository: nothing committed yet.
		return "", "", &NotFoundError{Path: path}
	}
	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return "", "", fmt.Errorf("resolve HEAD commit: %w", err)
	}
	file, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return "", "", &NotFoundError{Path: path}
	}
	if err != nil {
		return "", "", fmt.Errorf("read %s at HEAD: %w", path, err)
	}
	content, err := file.Contents()
	if err != nil {
		return "", "", fmt.Errorf("read %s blob: %w", path, err)
	}
	return content, Version(file.Hash.String()), nil
}

// Create commits a new document. Fails if the path is already tracked.
func (s *GitStore) Create(ctx context.Context, path, content string) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.readLocked(path); err == nil {
		return "", &AlreadyExistsError{Path: path}
	} else if !IsNotFound(err) {
		return "", err
	}
	return s.commitLocked(path, content, "statebox: create "+path)
}

// Write commits a replacement document, guarded by the expected blob hash.
func (s *GitStore) Write(ctx context.Context, path, content string, expected Version) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, current, err := s.readLocked(path)
	if err != nil {
		return "", err
	}
	if current != expected {
		return "", &VersionConflictError{Path: path, Expected: expected, Actual: current}
	}
	return s.commitLocked(path, content, "statebox: update "+path)
}

func (s *GitStore) commitLocked(path, content, message string) (Version, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	if _, err := wt.Add(path); err != nil {
		return "", fmt.Errorf("stage %s: %w", path, err)
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "statebox", Email: "statebox@localhost", When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", path, err)
	}

	_, v, err := s.readLocked(path)
	if err != nil {
		return "", fmt.Errorf("re-read after commit: %w", err)
	}
	return v, nil
}
