package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/statebox/internal/logfields"
	"git.home.luguber.info/inful/statebox/internal/metrics"
	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// WatchCmd implements the 'watch' command: poll a release's state document on
// an interval and report task status transitions and new blockers.
type WatchCmd struct {
	Release     string        `short:"r" required:"" help:"Release identifier"`
	Interval    time.Duration `short:"i" default:"30s" help:"Poll interval"`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	box, closeBox, err := openStateBox(root, w.Release)
	if err != nil {
		return err
	}
	defer closeBox()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if w.MetricsAddr != "" {
		reg := prom.NewRegistry()
		box.WithRecorder(metrics.NewPrometheusRecorder(reg))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			slog.Info("Serving metrics", slog.String("addr", w.MetricsAddr))
			if err := http.ListenAndServe(w.MetricsAddr, mux); err != nil {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
	}

	watcher := &releaseWatcher{box: box, release: w.Release}
	watcher.poll(ctx) // prime the baseline before the first tick

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(watcher.poll, ctx),
		gocron.WithName("release-watch"),
	)
	if err != nil {
		return fmt.Errorf("schedule watch job: %w", err)
	}

	slog.Info("Watching release", logfields.Release(w.Release), slog.Duration("interval", w.Interval))
	scheduler.Start()
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping watch")
	return scheduler.Shutdown()
}

// releaseWatcher holds the last observed snapshot between polls.
type releaseWatcher struct {
	box     *statebox.StateBox
	release string

	primed   bool
	statuses map[statebox.TaskName]statebox.TaskStatus
	blockers map[string]bool
}

func (rw *releaseWatcher) poll(ctx context.Context) {
	doc, err := rw.box.Load(ctx, true)
	if err != nil {
		slog.Error("Watch poll failed", logfields.Release(rw.release), logfields.Error(err))
		return
	}

	statuses := make(map[statebox.TaskName]statebox.TaskStatus, len(doc.Tasks))
	for _, t := range doc.Tasks {
		statuses[t.Name] = t.Status
	}
	blockers := make(map[string]bool)
	for _, is := range doc.Issues {
		if is.Blocker && !is.Resolved {
			blockers[is.Description] = true
		}
	}

	if rw.primed {
		for name, status := range statuses {
			if prev, ok := rw.statuses[name]; !ok || prev != status {
				slog.Info("Task status changed",
					logfields.Release(rw.release), logfields.Task(string(name)),
					slog.String("from", string(orNotStarted(rw.statuses, name))),
					slog.String("to", string(status)))
			}
		}
		for desc := range blockers {
			if !rw.blockers[desc] {
				slog.Warn("New blocking issue", logfields.Release(rw.release), slog.String("description", desc))
			}
		}
		for desc := range rw.blockers {
			if !blockers[desc] {
				slog.Info("Blocking issue resolved", logfields.Release(rw.release), slog.String("description", desc))
			}
		}
	}

	rw.primed = true
	rw.statuses = statuses
	rw.blockers = blockers
}

func orNotStarted(m map[statebox.TaskName]statebox.TaskStatus, name statebox.TaskName) statebox.TaskStatus {
	if s, ok := m[name]; ok {
		return s
	}
	return statebox.StatusNotStarted
}
