package journal

import (
	"context"
	"testing"
	"time"

	"git.home.luguber.info/inful/statebox/internal/statebox"
)

func TestJournalAppendAndRetrieve(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	err = j.Append(ctx, Entry{
		Release:   "4.16.9",
		EventType: "task_updated",
		Task:      "stage-testing",
		Status:    "InProgress",
		At:        at,
	})
	if err != nil {
		t.Fatalf("failed to append entry: %v", err)
	}

	entries, err := j.ByRelease(ctx, "4.16.9")
	if err != nil {
		t.Fatalf("failed to query entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.ID == "" {
		t.Error("expected a generated entry ID")
	}
	if e.Release != "4.16.9" {
		t.Errorf("expected release 4.16.9, got %s", e.Release)
	}
	if e.Task != "stage-testing" {
		t.Errorf("expected task stage-testing, got %s", e.Task)
	}
	if !e.At.Equal(at) {
		t.Errorf("expected at %v, got %v", at, e.At)
	}
}

func TestJournalByReleaseFilters(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	for _, release := range []string{"4.16.9", "4.17.0", "4.16.9"} {
		if err := j.Append(ctx, Entry{Release: release, EventType: "metadata_updated"}); err != nil {
			t.Fatalf("failed to append entry: %v", err)
		}
	}

	entries, err := j.ByRelease(ctx, "4.16.9")
	if err != nil {
		t.Fatalf("failed to query entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for 4.16.9, got %d", len(entries))
	}
}

func TestJournalRange(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := j.Append(ctx, Entry{
			Release:   "4.16.9",
			EventType: "issue_added",
			At:        base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("failed to append entry: %v", err)
		}
	}

	entries, err := j.Range(ctx, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to query range: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in range, got %d", len(entries))
	}
}

func TestObserverRecordsStateEvents(t *testing.T) {
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer func() { _ = j.Close() }()

	obs := NewObserver(j)
	ctx := context.Background()
	obs.OnStateChange(ctx, statebox.Event{
		Release: "4.16.9",
		Type:    statebox.EventTaskUpdated,
		Task:    statebox.TaskStageTesting,
		Status:  statebox.StatusPass,
		At:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	})

	entries, err := j.ByRelease(ctx, "4.16.9")
	if err != nil {
		t.Fatalf("failed to query entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].EventType != string(statebox.EventTaskUpdated) {
		t.Errorf("expected event type %s, got %s", statebox.EventTaskUpdated, entries[0].EventType)
	}
	if entries[0].Status != string(statebox.StatusPass) {
		t.Errorf("expected status Pass, got %s", entries[0].Status)
	}
}
