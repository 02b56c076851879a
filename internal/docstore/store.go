// Package docstore provides versioned single-document storage with optimistic
// concurrency. Every read returns an opaque version token; writes require the
// token they were based on and fail with VersionConflictError when the remote
// document has moved on.
package docstore

import "context"

// Version is the opaque concurrency token returned by reads and required by
// writes. Its contents are backend-specific (blob SHA for git-shaped stores)
// and must never be interpreted by callers.
type Version string

// Zero reports whether the token is empty (no known remote version).
func (v Version) Zero() bool { return v == "" }

// Store is the versioned document store consumed by the StateBox.
// Implementations must be safe for concurrent use from multiple goroutines.
type Store interface {
	// Exists reports whether a document exists at the path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the document content and its current version token.
	// Returns NotFoundError if the path does not exist.
	Read(ctx context.Context, path string) (string, Version, error)

	// Create stores a new document. Fails if the path already exists.
	Create(ctx context.Context, path, content string) (Version, error)

	// Write replaces the document, guarded by the expected version token.
	// Returns VersionConflictError if the remote version no longer matches.
	Write(ctx context.Context, path, content string, expected Version) (Version, error)
}
