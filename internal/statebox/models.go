// Package statebox implements the persistent release-workflow state store:
// a YAML document per release tracking metadata, per-task execution status
// and open issues, persisted through a versioned document store and safely
// mutated by concurrent uncoordinated writers via merge-on-conflict retries.
package statebox

import (
	"time"
)

// SchemaVersion marks the on-disk document format for forward compatibility.
const SchemaVersion = "statebox/v1"

// Metadata is an open mapping of release metadata. Scalar values merge
// last-writer-wins; nested map values merge key-by-key.
type Metadata map[string]any

// StateDocument is the root persisted entity, one per release.
type StateDocument struct {
	SchemaVersion string    `yaml:"schemaVersion" json:"schemaVersion"`
	Release       string    `yaml:"release" json:"release"`
	CreatedAt     time.Time `yaml:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `yaml:"updatedAt" json:"updatedAt"`
	Metadata      Metadata  `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Tasks         []Task    `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	Issues        []Issue   `yaml:"issues,omitempty" json:"issues,omitempty"`
}

// Task tracks one workflow step. At most one Task per name in a document.
type Task struct {
	Name        TaskName   `yaml:"name" json:"name"`
	Status      TaskStatus `yaml:"status" json:"status"`
	StartedAt   *time.Time `yaml:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt *time.Time `yaml:"completedAt,omitempty" json:"completedAt,omitempty"`
	Result      string     `yaml:"result,omitempty" json:"result,omitempty"`
}

// Issue tracks an open problem or blocker against the release.
type Issue struct {
	Description  string     `yaml:"description" json:"description"`
	ReportedAt   time.Time  `yaml:"reportedAt" json:"reportedAt"`
	Resolved     bool       `yaml:"resolved" json:"resolved"`
	Resolution   string     `yaml:"resolution,omitempty" json:"resolution,omitempty"`
	ResolvedAt   *time.Time `yaml:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	Blocker      bool       `yaml:"blocker" json:"blocker"`
	RelatedTasks []TaskName `yaml:"relatedTasks,omitempty" json:"relatedTasks,omitempty"`
}

// General reports whether the issue affects the whole release rather than
// specific tasks.
func (i Issue) General() bool { return len(i.RelatedTasks) == 0 }

// References reports whether the issue names the given task.
func (i Issue) References(name TaskName) bool {
	for _, t := range i.RelatedTasks {
		if t == name {
			return true
		}
	}
	return false
}

// FindTask returns a pointer to the task with the given name, or nil.
func (d *StateDocument) FindTask(name TaskName) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].Name == name {
			return &d.Tasks[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the document. Mutators work on copies so a
// failed save never corrupts the cached state.
func (d *StateDocument) Clone() *StateDocument {
	out := *d
	out.Metadata = cloneMetadata(d.Metadata)
	out.Tasks = make([]Task, len(d.Tasks))
	for i, t := range d.Tasks {
		out.Tasks[i] = t
		if t.StartedAt != nil {
			ts := *t.StartedAt
			out.Tasks[i].StartedAt = &ts
		}
		if t.CompletedAt != nil {
			ts := *t.CompletedAt
			out.Tasks[i].CompletedAt = &ts
		}
	}
	out.Issues = make([]Issue, len(d.Issues))
	for i, is := range d.Issues {
		out.Issues[i] = is
		if is.ResolvedAt != nil {
			ts := *is.ResolvedAt
			out.Issues[i].ResolvedAt = &ts
		}
		out.Issues[i].RelatedTasks = append([]TaskName(nil), is.RelatedTasks...)
	}
	return &out
}

func cloneMetadata(m Metadata) Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		if nested, ok := asStringMap(v); ok {
			inner := make(map[string]any, len(nested))
			for nk, nv := range nested {
				inner[nk] = nv
			}
			out[k] = inner
			continue
		}
		out[k] = v
	}
	return out
}

// asStringMap normalizes the two map shapes yaml.v3 can produce.
func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Metadata:
		return m, true
	default:
		return nil, false
	}
}
