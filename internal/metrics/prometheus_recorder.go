package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once         sync.Once
	saveDuration prom.Histogram
	saveOutcomes *prom.CounterVec
	conflicts    prom.Counter
	merges       prom.Counter
	loads        *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.saveDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "statebox",
			Name:      "save_duration_seconds",
			Help:      "Duration of save calls including conflict retries",
			Buckets:   prom.DefBuckets,
		})
		pr.saveOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebox",
			Name:      "save_outcomes_total",
			Help:      "Save results by outcome",
		}, []string{"outcome"})
		pr.conflicts = prom.NewCounter(prom.CounterOpts{
			Namespace: "statebox",
			Name:      "version_conflicts_total",
			Help:      "Version conflicts observed during saves",
		})
		pr.merges = prom.NewCounter(prom.CounterOpts{
			Namespace: "statebox",
			Name:      "merges_applied_total",
			Help:      "Conflict merges applied before retrying a save",
		})
		pr.loads = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "statebox",
			Name:      "loads_total",
			Help:      "Document loads by source",
		}, []string{"source"})
		reg.MustRegister(pr.saveDuration, pr.saveOutcomes, pr.conflicts, pr.merges, pr.loads)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveSaveDuration(d time.Duration) {
	if p == nil || p.saveDuration == nil {
		return
	}
	p.saveDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSaveOutcome(outcome SaveOutcome) {
	if p == nil || p.saveOutcomes == nil {
		return
	}
	p.saveOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncVersionConflict() {
	if p == nil || p.conflicts == nil {
		return
	}
	p.conflicts.Inc()
}

func (p *PrometheusRecorder) IncMergeApplied() {
	if p == nil || p.merges == nil {
		return
	}
	p.merges.Inc()
}

func (p *PrometheusRecorder) IncLoad(fromCache bool) {
	if p == nil || p.loads == nil {
		return
	}
	source := "store"
	if fromCache {
		source = "cache"
	}
	p.loads.WithLabelValues(source).Inc()
}
