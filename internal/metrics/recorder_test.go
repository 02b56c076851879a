package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopRecorderSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveSaveDuration(time.Second)
	r.IncSaveOutcome(SaveWritten)
	r.IncVersionConflict()
	r.IncMergeApplied()
	r.IncLoad(true)
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncSaveOutcome(SaveWritten)
	r.IncSaveOutcome(SaveWritten)
	r.IncSaveOutcome(SaveExhausted)
	r.IncVersionConflict()
	r.IncMergeApplied()
	r.IncLoad(true)
	r.IncLoad(false)
	r.ObserveSaveDuration(250 * time.Millisecond)

	if got := testutil.ToFloat64(r.saveOutcomes.WithLabelValues("written")); got != 2 {
		t.Fatalf("expected 2 written saves, got %v", got)
	}
	if got := testutil.ToFloat64(r.conflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.ToFloat64(r.loads.WithLabelValues("cache")); got != 1 {
		t.Fatalf("expected 1 cache load, got %v", got)
	}
}

func TestPrometheusRecorderNilReceiver(t *testing.T) {
	var r *PrometheusRecorder
	r.IncVersionConflict()
	r.ObserveSaveDuration(time.Second)
}
