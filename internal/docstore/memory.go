package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for testing.
// Version tokens are content hashes, so identical content yields identical
// tokens, matching the blob-SHA behaviour of the git-shaped backends.
type MemoryStore struct {
	mu    sync.Mutex
	docs  map[string]memoryDoc
	calls MemoryCalls

	// FailNextWrites forces the next N Write calls to report a conflict
	// even when the token matches, for exercising retry loops.
	FailNextWrites int
}

type memoryDoc struct {
	content string
	version Version
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Exists int
	Read   int
	Create int
	Write  int
}

// NewMemoryStore creates a new in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memoryDoc)}
}

// Calls returns a snapshot of the call counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Exists reports whether a document exists at the path.
func (m *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Exists++
	_, ok := m.docs[path]
	return ok, nil
}

// Read returns the document content and its current version token.
func (m *MemoryStore) Read(ctx context.Context, path string) (string, Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Read++
	doc, ok := m.docs[path]
	if !ok {
		return "", "", &NotFoundError{Path: path}
	}
	return doc.content, doc.version, nil
}

// Create stores a new document. Fails if the path already exists.
func (m *MemoryStore) Create(ctx context.Context, path, content string) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Create++
	if _, ok := m.docs[path]; ok {
		return "", &AlreadyExistsError{Path: path}
	}
	v := hashVersion(content)
	m.docs[path] = memoryDoc{content: content, version: v}
	return v, nil
}

// Write replaces the document, guarded by the expected version token.
func (m *MemoryStore) Write(ctx context.Context, path, content string, expected Version) (Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Write++
	doc, ok := m.docs[path]
	if !ok {
		return "", &NotFoundError{Path: path}
	}
	if m.FailNextWrites > 0 {
		m.FailNextWrites--
		return "", &VersionConflictError{Path: path, Expected: expected, Actual: doc.version}
	}
	if doc.version != expected {
		return "", &VersionConflictError{Path: path, Expected: expected, Actual: doc.version}
	}
	v := hashVersion(content)
	m.docs[path] = memoryDoc{content: content, version: v}
	return v, nil
}

func hashVersion(content string) Version {
	h := sha256.Sum256([]byte(content))
	return Version(hex.EncodeToString(h[:8]))
}

// Dump returns the raw stored content for a path, for test assertions.
func (m *MemoryStore) Dump(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	return doc.content, ok
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*GitStore)(nil)
var _ Store = (*GitHubStore)(nil)
