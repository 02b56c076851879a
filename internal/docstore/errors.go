package docstore

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when no document exists at the requested path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "document not found: " + e.Path
}

// VersionConflictError is returned when a write's expected version token no
// longer matches the remote document. Both tokens are carried so callers can
// report the race precisely.
type VersionConflictError struct {
	Path     string
	Expected Version
	Actual   Version
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: expected %s, remote is %s", e.Path, e.Expected, e.Actual)
}

// AlreadyExistsError is returned by Create when the path is already occupied.
type AlreadyExistsError struct {
	Path string
}

func (e *AlreadyExistsError) Error() string {
	return "document already exists: " + e.Path
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsVersionConflict reports whether err is (or wraps) a VersionConflictError.
func IsVersionConflict(err error) bool {
	var vc *VersionConflictError
	return errors.As(err, &vc)
}

// AsVersionConflict extracts the conflict detail when present.
func AsVersionConflict(err error) (*VersionConflictError, bool) {
	var vc *VersionConflictError
	ok := errors.As(err, &vc)
	return vc, ok
}
