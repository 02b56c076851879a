package statebox

import (
	"context"
	"time"

	sberr "git.home.luguber.info/inful/statebox/internal/errors"
)

// UpdateTaskOptions tunes a single UpdateTask call.
type UpdateTaskOptions struct {
	// SkipSave applies the update to the in-memory cache only. Batched
	// multi-field updates use this to avoid redundant store round-trips,
	// persisting once via Save at the end.
	SkipSave bool
}

// UpdateTask records a status transition for a workflow step, creating the
// task entry on first reference. Result text, when supplied, is scanned for
// leading/trailing ISO-8601-like timestamps (the step's own evidence of when
// it actually ran) and has email-shaped substrings redacted before storage.
//
// Transition side effects:
//   - InProgress: startedAt = extracted leading timestamp or now;
//     completedAt cleared.
//   - Pass/Fail: completedAt = extracted trailing timestamp or now;
//     startedAt backfilled from the leading timestamp, the completion
//     timestamp, or now, if it was never set.
//
// The state machine is advisory: a fresh call may overwrite a terminal
// status.
func (s *StateBox) UpdateTask(ctx context.Context, name TaskName, status TaskStatus, resultText string, opts ...UpdateTaskOptions) (Task, error) {
	if !name.Valid() {
		return Task{}, sberr.Newf(sberr.KindValidation, "unknown task name %q (valid: %s)", name, joinTaskNames(taskCatalog))
	}
	if !status.Valid() {
		return Task{}, sberr.Newf(sberr.KindValidation, "invalid task status %q", status)
	}
	var opt UpdateTaskOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	var updated Task
	_, err := s.mutate(ctx, !opt.SkipSave, func(doc *StateDocument) (Event, error) {
		task := doc.FindTask(name)
		if task == nil {
			doc.Tasks = append(doc.Tasks, Task{Name: name, Status: StatusNotStarted})
			task = &doc.Tasks[len(doc.Tasks)-1]
		}

		now := s.now()
		firstTS, lastTS := extractAndRedact(resultText, task)

		task.Status = status
		switch {
		case status == StatusInProgress:
			if firstTS != nil {
				task.StartedAt = firstTS
			} else {
				task.StartedAt = &now
			}
			task.CompletedAt = nil
		case status.Terminal():
			if lastTS != nil {
				task.CompletedAt = lastTS
			} else {
				task.CompletedAt = &now
			}
			if task.StartedAt == nil {
				switch {
				case firstTS != nil:
					task.StartedAt = firstTS
				case task.CompletedAt != nil:
					task.StartedAt = task.CompletedAt
				default:
					task.StartedAt = &now
				}
			}
		}

		updated = *task
		return Event{
			Release: s.release,
			Type:    EventTaskUpdated,
			Task:    name,
			Status:  status,
			At:      now,
		}, nil
	})
	if err != nil {
		return Task{}, err
	}
	return updated, nil
}

// extractAndRedact stores redacted result text on the task (when supplied)
// and returns the leading/trailing timestamps found in the raw text.
func extractAndRedact(resultText string, task *Task) (first, last *time.Time) {
	if resultText == "" {
		return nil, nil
	}
	f, l := ExtractTimestamps(resultText)
	task.Result = RedactEmails(resultText)
	return f, l
}

// GetTask returns the task entry for a name, if present.
func (s *StateBox) GetTask(ctx context.Context, name TaskName) (Task, bool, error) {
	if !name.Valid() {
		return Task{}, false, sberr.Newf(sberr.KindValidation, "unknown task name %q", name)
	}
	doc, err := s.Load(ctx, false)
	if err != nil {
		return Task{}, false, err
	}
	if t := doc.FindTask(name); t != nil {
		return *t, true, nil
	}
	return Task{}, false, nil
}

// GetTaskStatus returns the task's status, defaulting to NotStarted for a
// task that has never been referenced.
func (s *StateBox) GetTaskStatus(ctx context.Context, name TaskName) (TaskStatus, error) {
	task, ok, err := s.GetTask(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return StatusNotStarted, nil
	}
	return task.Status, nil
}
