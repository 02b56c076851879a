package statebox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseDocument() *StateDocument {
	return &StateDocument{
		SchemaVersion: SchemaVersion,
		Release:       "4.16.9",
		CreatedAt:     ts("2026-08-01T10:00:00Z"),
		UpdatedAt:     ts("2026-08-01T10:00:00Z"),
		Metadata:      Metadata{},
	}
}

func TestMergeDisjointEditsCommutative(t *testing.T) {
	pre := baseDocument()

	// Writer A only touches metadata.
	a := pre.Clone()
	a.Metadata["jiraTicket"] = "OCPREL-1234"

	// Writer B only progresses a task.
	b := pre.Clone()
	started := ts("2026-08-01T11:00:00Z")
	b.Tasks = append(b.Tasks, Task{Name: TaskStageTesting, Status: StatusInProgress, StartedAt: &started})

	ab := Merge(a, b)
	ba := Merge(b, a)

	require.Equal(t, ab, ba)
	require.Equal(t, "OCPREL-1234", ab.Metadata["jiraTicket"])
	require.Len(t, ab.Tasks, 1)
	require.Equal(t, StatusInProgress, ab.Tasks[0].Status)
}

func TestMergeMetadataNestedMapUnion(t *testing.T) {
	local := baseDocument()
	local.Metadata["advisoryIds"] = map[string]any{"rpm": 111, "image": 999}

	remote := baseDocument()
	remote.Metadata["advisoryIds"] = map[string]any{"image": 222, "extras": 333}
	remote.Metadata["qeOwner"] = "a@x.com"

	merged := Merge(local, remote)
	ids, ok := merged.Metadata["advisoryIds"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 111, ids["rpm"])
	require.Equal(t, 999, ids["image"], "local keys win on collision")
	require.Equal(t, 333, ids["extras"], "remote-only keys survive")
	require.Equal(t, "a@x.com", merged.Metadata["qeOwner"], "remote scalars untouched")
}

func TestMergeMetadataScalarLastWriterWins(t *testing.T) {
	local := baseDocument()
	local.Metadata["jiraTicket"] = "OCPREL-2000"

	remote := baseDocument()
	remote.Metadata["jiraTicket"] = "OCPREL-1000"

	merged := Merge(local, remote)
	require.Equal(t, "OCPREL-2000", merged.Metadata["jiraTicket"])
}

func TestMergeTasksLocalWinsWholesale(t *testing.T) {
	localStart := ts("2026-08-01T11:00:00Z")
	local := baseDocument()
	local.Tasks = []Task{
		{Name: TaskStageTesting, Status: StatusPass, StartedAt: &localStart, Result: "green"},
		{Name: TaskSigning, Status: StatusInProgress, StartedAt: &localStart},
	}

	remoteStart := ts("2026-08-01T10:30:00Z")
	remote := baseDocument()
	remote.Tasks = []Task{
		{Name: TaskStageTesting, Status: StatusFail, StartedAt: &remoteStart, Result: "red"},
		{Name: TaskCDNPush, Status: StatusNotStarted},
	}

	merged := Merge(local, remote)
	require.Len(t, merged.Tasks, 3)

	// Remote order is preserved; the racing task takes local's version
	// outright, fields and all.
	require.Equal(t, TaskStageTesting, merged.Tasks[0].Name)
	require.Equal(t, StatusPass, merged.Tasks[0].Status)
	require.Equal(t, "green", merged.Tasks[0].Result)

	require.Equal(t, TaskCDNPush, merged.Tasks[1].Name)
	require.Equal(t, TaskSigning, merged.Tasks[2].Name, "local-only tasks appended")
}

func TestMergeIssueResolutionPreferred(t *testing.T) {
	resolvedAt := ts("2026-08-02T12:00:00Z")

	local := baseDocument()
	local.Issues = []Issue{{
		Description: "CVE-2026-12345 fix missing",
		ReportedAt:  ts("2026-08-02T10:00:00Z"),
		Resolved:    true,
		Resolution:  "respin picked up the fix",
		ResolvedAt:  &resolvedAt,
	}}

	remote := baseDocument()
	remote.Issues = []Issue{{
		Description: "cve-2026-12345 fix missing", // differs only by case
		ReportedAt:  ts("2026-08-02T10:00:00Z"),
	}}

	merged := Merge(local, remote)
	require.Len(t, merged.Issues, 1)
	require.True(t, merged.Issues[0].Resolved)
	require.Equal(t, "respin picked up the fix", merged.Issues[0].Resolution)

	// And in the other direction: remote resolved, local not.
	merged = Merge(remote, local)
	require.Len(t, merged.Issues, 1)
	require.True(t, merged.Issues[0].Resolved)
}

func TestMergeIssueLaterResolutionWins(t *testing.T) {
	early := ts("2026-08-02T12:00:00Z")
	late := ts("2026-08-02T14:00:00Z")

	local := baseDocument()
	local.Issues = []Issue{{
		Description: "stage CDN flake",
		ReportedAt:  ts("2026-08-02T10:00:00Z"),
		Resolved:    true,
		Resolution:  "second look",
		ResolvedAt:  &late,
	}}

	remote := baseDocument()
	remote.Issues = []Issue{{
		Description: "stage CDN flake",
		ReportedAt:  ts("2026-08-02T10:00:00Z"),
		Resolved:    true,
		Resolution:  "first look",
		ResolvedAt:  &early,
	}}

	merged := Merge(local, remote)
	require.Equal(t, "second look", merged.Issues[0].Resolution)

	merged = Merge(remote, local)
	require.Equal(t, "second look", merged.Issues[0].Resolution)
}

func TestMergeLocalOnlyIssuesAppended(t *testing.T) {
	local := baseDocument()
	local.Issues = []Issue{{Description: "new problem", ReportedAt: ts("2026-08-02T10:00:00Z")}}

	remote := baseDocument()
	remote.Issues = []Issue{{Description: "old problem", ReportedAt: ts("2026-08-01T10:00:00Z")}}

	merged := Merge(local, remote)
	require.Len(t, merged.Issues, 2)
	require.Equal(t, "old problem", merged.Issues[0].Description)
	require.Equal(t, "new problem", merged.Issues[1].Description)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	local := baseDocument()
	local.Metadata["advisoryIds"] = map[string]any{"rpm": 111}
	remote := baseDocument()
	remote.Metadata["advisoryIds"] = map[string]any{"image": 222}

	_ = Merge(local, remote)

	require.Equal(t, map[string]any{"rpm": 111}, local.Metadata["advisoryIds"])
	require.Equal(t, map[string]any{"image": 222}, remote.Metadata["advisoryIds"])
}

func TestMergeUnresolvedBothSidesKeepsRemote(t *testing.T) {
	local := baseDocument()
	local.Issues = []Issue{{Description: "flake", ReportedAt: ts("2026-08-02T10:00:00Z"), Blocker: true}}
	remote := baseDocument()
	remote.Issues = []Issue{{Description: "flake", ReportedAt: ts("2026-08-02T10:00:00Z")}}

	merged := Merge(local, remote)
	require.Len(t, merged.Issues, 1)
	require.False(t, merged.Issues[0].Blocker, "remote wins when neither side resolved")
}
