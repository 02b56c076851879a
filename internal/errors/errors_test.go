package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(KindValidation, "unknown task name")
	if got := plain.Error(); got != "validation: unknown task name" {
		t.Fatalf("unexpected message: %q", got)
	}

	wrapped := Wrap(stderrors.New("401 unauthorized"), KindBackend, "read state document")
	if got := wrapped.Error(); got != "backend: read state document: 401 unauthorized" {
		t.Fatalf("unexpected wrapped message: %q", got)
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := New(KindConcurrency, "version conflict after 5 attempts")
	outer := fmt.Errorf("save failed: %w", inner)

	if !IsKind(outer, KindConcurrency) {
		t.Fatal("expected concurrency kind through fmt wrapping")
	}
	if IsKind(outer, KindValidation) {
		t.Fatal("did not expect validation kind")
	}
}

func TestGetKindFallback(t *testing.T) {
	if k := GetKind(stderrors.New("dial tcp: timeout")); k != KindBackend {
		t.Fatalf("expected backend fallback, got %s", k)
	}
	if k := GetKind(New(KindDomainRule, "duplicate blocker")); k != KindDomainRule {
		t.Fatalf("expected domain_rule, got %s", k)
	}
}

func TestWithContext(t *testing.T) {
	err := New(KindConcurrency, "stale version").
		WithContext("expected", "abc123").
		WithContext("actual", "def456")
	if err.Context["expected"] != "abc123" || err.Context["actual"] != "def456" {
		t.Fatalf("context not recorded: %v", err.Context)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, KindBackend, "write")
	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
}
