package statebox

import (
	"fmt"
	"strings"

	sberr "git.home.luguber.info/inful/statebox/internal/errors"
)

// TaskName identifies a workflow step. The catalog is closed: unknown names
// are rejected before they can reach the document.
type TaskName string

const (
	TaskPrepareShipment  TaskName = "prepare-shipment"
	TaskValidateBuilds   TaskName = "validate-builds"
	TaskImageConsistency TaskName = "image-consistency-check"
	TaskStageTesting     TaskName = "stage-testing"
	TaskSigning          TaskName = "signing"
	TaskAdvisoryUpdate   TaskName = "advisory-update"
	TaskCDNPush          TaskName = "cdn-push"
	TaskProdRollout      TaskName = "prod-rollout"
	TaskReleaseNotes     TaskName = "release-notes"
	TaskAnnounce         TaskName = "announce"
)

// taskCatalog lists every valid task name in workflow order.
var taskCatalog = []TaskName{
	TaskPrepareShipment,
	TaskValidateBuilds,
	TaskImageConsistency,
	TaskStageTesting,
	TaskSigning,
	TaskAdvisoryUpdate,
	TaskCDNPush,
	TaskProdRollout,
	TaskReleaseNotes,
	TaskAnnounce,
}

// TaskCatalog returns the closed set of valid task names in workflow order.
func TaskCatalog() []TaskName {
	return append([]TaskName(nil), taskCatalog...)
}

// Valid reports whether the name is a member of the catalog.
func (n TaskName) Valid() bool {
	for _, known := range taskCatalog {
		if n == known {
			return true
		}
	}
	return false
}

// ParseTaskName validates raw user input against the catalog.
func ParseTaskName(raw string) (TaskName, error) {
	name := TaskName(strings.TrimSpace(raw))
	if !name.Valid() {
		return "", sberr.Newf(sberr.KindValidation, "unknown task name %q (valid: %s)", raw, joinTaskNames(taskCatalog))
	}
	return name, nil
}

func joinTaskNames(names []TaskName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// TaskStatus is the four-valued execution state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "NotStarted"
	StatusInProgress TaskStatus = "InProgress"
	StatusPass       TaskStatus = "Pass"
	StatusFail       TaskStatus = "Fail"
)

// Valid reports whether the status is one of the four known values.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusPass, StatusFail:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is a completion state.
func (s TaskStatus) Terminal() bool {
	return s == StatusPass || s == StatusFail
}

// ParseTaskStatus validates raw user input against the status enum,
// case-insensitively.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "notstarted", "not-started":
		return StatusNotStarted, nil
	case "inprogress", "in-progress":
		return StatusInProgress, nil
	case "pass":
		return StatusPass, nil
	case "fail":
		return StatusFail, nil
	default:
		return "", sberr.Newf(sberr.KindValidation, "invalid task status %q (valid: %s)",
			raw, fmt.Sprintf("%s, %s, %s, %s", StatusNotStarted, StatusInProgress, StatusPass, StatusFail))
	}
}
