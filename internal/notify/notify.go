// Package notify publishes state mutation events to NATS so downstream
// automation (dashboards, chat bots, pipeline triggers) can react without
// polling the state documents.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/statebox/internal/config"
	"git.home.luguber.info/inful/statebox/internal/logfields"
	"git.home.luguber.info/inful/statebox/internal/statebox"
)

const publishTimeout = 5 * time.Second

// publisher is the slice of *nats.Conn we use, injectable for tests.
type publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// Notifier publishes state change events to a NATS subject.
type Notifier struct {
	conn    publisher
	subject string
}

// NewNotifier connects to NATS per the notify config.
func NewNotifier(cfg config.NotifyConfig) (*Notifier, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("change notification is disabled")
	}

	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Timeout(publishTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "statebox.events"
	}

	slog.Info("Change notifier connected", slog.String("url", url), logfields.Subject(subject))
	return &Notifier{conn: conn, subject: subject}, nil
}

// OnStateChange publishes the event as JSON. Publish failures are logged,
// never propagated; the state change is already durable.
func (n *Notifier) OnStateChange(_ context.Context, ev statebox.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Marshal state event failed", logfields.Release(ev.Release), logfields.Error(err))
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		slog.Error("Publish state event failed",
			logfields.Release(ev.Release), logfields.Subject(n.subject), logfields.Error(err))
		return
	}
	slog.Debug("Published state event",
		logfields.Release(ev.Release), logfields.Subject(n.subject), slog.String("type", string(ev.Type)))
}

// Close flushes pending publishes and closes the connection.
func (n *Notifier) Close() error {
	if n.conn != nil {
		_ = n.conn.Flush()
		n.conn.Close()
	}
	return nil
}

var _ statebox.Observer = (*Notifier)(nil)
