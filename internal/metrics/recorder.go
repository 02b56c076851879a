// Package metrics defines observability hooks for state store operations.
package metrics

import "time"

// SaveOutcome enumerates terminal results of a save call.
type SaveOutcome string

const (
	SaveCreated   SaveOutcome = "created"
	SaveWritten   SaveOutcome = "written"
	SaveExhausted SaveOutcome = "exhausted"
	SaveFailed    SaveOutcome = "failed"
)

// Recorder defines observability hooks for document loads and saves.
// Implementations may forward to Prometheus; the NoopRecorder allows
// optional injection.
type Recorder interface {
	ObserveSaveDuration(d time.Duration)
	IncSaveOutcome(outcome SaveOutcome)
	IncVersionConflict()
	IncMergeApplied()
	IncLoad(fromCache bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveSaveDuration(time.Duration) {}
func (NoopRecorder) IncSaveOutcome(SaveOutcome)        {}
func (NoopRecorder) IncVersionConflict()               {}
func (NoopRecorder) IncMergeApplied()                  {}
func (NoopRecorder) IncLoad(bool)                      {}
