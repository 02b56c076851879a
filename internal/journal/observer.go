package journal

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/statebox/internal/logfields"
	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// Observer adapts a Journal to the statebox observer interface, appending one
// entry per persisted mutation.
type Observer struct {
	journal *Journal
}

// NewObserver wraps a journal for registration on a StateBox.
func NewObserver(j *Journal) *Observer {
	return &Observer{journal: j}
}

func (o *Observer) OnStateChange(ctx context.Context, ev statebox.Event) {
	entry := Entry{
		Release:   ev.Release,
		EventType: string(ev.Type),
		Task:      string(ev.Task),
		Status:    string(ev.Status),
		Detail:    ev.Detail,
		At:        ev.At,
	}
	if err := o.journal.Append(ctx, entry); err != nil {
		slog.Error("Journal append failed", logfields.Release(ev.Release), logfields.Error(err))
	}
}

var _ statebox.Observer = (*Observer)(nil)
