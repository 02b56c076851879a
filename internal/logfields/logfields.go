package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRelease    = "release"
	KeyTask       = "task"
	KeyTaskStatus = "task_status"
	KeyPath       = "path"
	KeyVersion    = "version"
	KeyAttempt    = "attempt"
	KeySubject    = "subject"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Release(r string) slog.Attr      { return slog.String(KeyRelease, r) }
func Task(name string) slog.Attr      { return slog.String(KeyTask, name) }
func TaskStatus(s string) slog.Attr   { return slog.String(KeyTaskStatus, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
