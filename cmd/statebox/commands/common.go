package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/statebox/internal/config"
	"git.home.luguber.info/inful/statebox/internal/docstore"
	"git.home.luguber.info/inful/statebox/internal/journal"
	"git.home.luguber.info/inful/statebox/internal/notify"
	"git.home.luguber.info/inful/statebox/internal/retry"
	"git.home.luguber.info/inful/statebox/internal/statebox"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"statebox.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Task   TaskCmd   `cmd:"" help:"Record and inspect release task progress"`
	Issue  IssueCmd  `cmd:"" help:"Report, resolve and list release issues"`
	Meta   MetaCmd   `cmd:"" help:"Set and read release metadata fields"`
	Status StatusCmd `cmd:"" help:"Show the full state of a release"`
	Init   InitCmd   `cmd:"" help:"Initialize a new configuration file"`
	Watch  WatchCmd  `cmd:"" help:"Watch a release for changes and report task transitions"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// boxCloser releases observer resources attached to a StateBox.
type boxCloser func()

// openStateBox builds a StateBox for a release from the configuration:
// backend selection, retry policy, and the optional journal and notifier
// observers.
func openStateBox(root *CLI, release string) (*statebox.StateBox, boxCloser, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var store docstore.Store
	switch cfg.Store.Backend {
	case config.BackendGitHub:
		store, err = docstore.NewGitHubStore(cfg.Store)
	case config.BackendGit:
		store, err = docstore.NewGitStore(cfg.Store.RepoPath)
	default:
		err = fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}

	box := statebox.New(store, release).
		WithPathPrefix(cfg.Store.PathPrefix).
		WithPolicy(retry.FromConfig(cfg.Retry))

	var closers []func()
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		box.WithObserver(journal.NewObserver(j))
		closers = append(closers, func() { _ = j.Close() })
	}
	if cfg.Notify.Enabled {
		n, err := notify.NewNotifier(cfg.Notify)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, fmt.Errorf("open notifier: %w", err)
		}
		box.WithObserver(n)
		closers = append(closers, func() { _ = n.Close() })
	}

	return box, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
