package statebox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/statebox/internal/docstore"
	sberr "git.home.luguber.info/inful/statebox/internal/errors"
	"git.home.luguber.info/inful/statebox/internal/logfields"
	"git.home.luguber.info/inful/statebox/internal/metrics"
	"git.home.luguber.info/inful/statebox/internal/retry"
)

// EventType classifies a state mutation for observers.
type EventType string

const (
	EventTaskUpdated     EventType = "task_updated"
	EventMetadataUpdated EventType = "metadata_updated"
	EventIssueAdded      EventType = "issue_added"
	EventIssueResolved   EventType = "issue_resolved"
)

// Event describes a successfully persisted state mutation.
type Event struct {
	Release string     `json:"release"`
	Type    EventType  `json:"type"`
	Task    TaskName   `json:"task,omitempty"`
	Status  TaskStatus `json:"status,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	At      time.Time  `json:"at"`
}

// Observer receives events after a mutation has been durably saved.
// Observer failures are logged, never propagated; the state change already
// happened.
type Observer interface {
	OnStateChange(ctx context.Context, ev Event)
}

// StateBox owns the load/save lifecycle for one release's state document.
// The document and version token cache is instance state, so independent
// StateBox values (even in one process) behave like independent writers.
type StateBox struct {
	store    docstore.Store
	release  string
	path     string
	policy   retry.Policy
	provider ReleaseInfoProvider
	recorder metrics.Recorder

	observers []Observer

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)

	mu      sync.Mutex
	cached  *StateDocument
	version docstore.Version
}

// New creates a StateBox bound to one release. Defaults: "releases" path
// prefix, the standard conflict retry policy, no metrics, no observers.
func New(store docstore.Store, release string) *StateBox {
	return &StateBox{
		store:    store,
		release:  release,
		path:     DocumentPath("releases", release),
		policy:   retry.DefaultPolicy(),
		recorder: metrics.NoopRecorder{},
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		sleep:    time.Sleep,
	}
}

// WithPathPrefix overrides the storage path prefix (fluent helper).
func (s *StateBox) WithPathPrefix(prefix string) *StateBox {
	s.path = DocumentPath(prefix, s.release)
	return s
}

// WithPolicy overrides the conflict retry policy (fluent helper).
func (s *StateBox) WithPolicy(p retry.Policy) *StateBox { s.policy = p; return s }

// WithProvider attaches the release-metadata provider used to seed new
// documents (fluent helper).
func (s *StateBox) WithProvider(p ReleaseInfoProvider) *StateBox { s.provider = p; return s }

// WithRecorder attaches a metrics recorder (fluent helper).
func (s *StateBox) WithRecorder(r metrics.Recorder) *StateBox {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithObserver registers an observer for persisted mutations (fluent helper).
func (s *StateBox) WithObserver(o Observer) *StateBox {
	if o != nil {
		s.observers = append(s.observers, o)
	}
	return s
}

// withClock injects deterministic time and sleep for tests.
func (s *StateBox) withClock(now func() time.Time, sleep func(time.Duration)) *StateBox {
	s.now = now
	s.sleep = sleep
	return s
}

// Release returns the release identifier this box is bound to.
func (s *StateBox) Release() string { return s.release }

// Path returns the storage path of the state document.
func (s *StateBox) Path() string { return s.path }

// Exists reports whether the state document has been persisted yet.
func (s *StateBox) Exists(ctx context.Context) (bool, error) {
	ok, err := s.store.Exists(ctx, s.path)
	if err != nil {
		return false, sberr.Wrap(err, sberr.KindBackend, "check state document")
	}
	return ok, nil
}

// Load returns the release's state document. The cached copy is served
// unless forceRefresh is set or nothing is cached yet. A missing remote
// document yields a freshly synthesized default (not yet persisted) with an
// empty version token, so the next save performs a create.
func (s *StateBox) Load(ctx context.Context, forceRefresh bool) (*StateDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.loadLocked(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (s *StateBox) loadLocked(ctx context.Context, forceRefresh bool) (*StateDocument, error) {
	if s.cached != nil && !forceRefresh {
		s.recorder.IncLoad(true)
		return s.cached, nil
	}

	content, version, err := s.store.Read(ctx, s.path)
	if docstore.IsNotFound(err) {
		s.cached = newDefaultDocument(s.release, s.provider, s.now())
		s.version = ""
		s.recorder.IncLoad(false)
		slog.Debug("State document missing, synthesized default", logfields.Release(s.release), logfields.Path(s.path))
		return s.cached, nil
	}
	if err != nil {
		return nil, sberr.Wrap(err, sberr.KindBackend, "read state document")
	}

	doc, err := Decode(content)
	if err != nil {
		return nil, err
	}
	s.cached = doc
	s.version = version
	s.recorder.IncLoad(false)
	return s.cached, nil
}

// Save persists the document. The version token is re-read immediately
// before the write to shrink the race window; if the remote has advanced, the
// caller's document is merged with the remote one and the write retried, up
// to the policy's attempt budget with backoff. With retry disabled a conflict
// fails immediately, naming both version tokens.
func (s *StateBox) Save(ctx context.Context, doc *StateDocument, retryEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, doc, retryEnabled)
}

func (s *StateBox) saveLocked(ctx context.Context, doc *StateDocument, retryEnabled bool) error {
	started := time.Now()
	defer func() { s.recorder.ObserveSaveDuration(time.Since(started)) }()

	working := doc.Clone()
	base := s.version

	maxAttempts := s.policy.MaxAttempts
	if !retryEnabled {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			s.sleep(s.policy.Delay(attempt - 1))
		}
		working.UpdatedAt = s.now()

		version, conflict, err := s.attemptSave(ctx, working, base)
		if err != nil {
			s.recorder.IncSaveOutcome(metrics.SaveFailed)
			return err
		}
		if conflict == nil {
			s.cached = working
			s.version = version
			outcome := metrics.SaveWritten
			if base.Zero() {
				outcome = metrics.SaveCreated
			}
			s.recorder.IncSaveOutcome(outcome)
			slog.Debug("State document saved",
				logfields.Release(s.release), logfields.Version(string(version)), logfields.Attempt(attempt))
			return nil
		}

		s.recorder.IncVersionConflict()
		if !retryEnabled {
			s.recorder.IncSaveOutcome(metrics.SaveFailed)
			return sberr.Newf(sberr.KindConcurrency,
				"state document changed concurrently (have %s, remote is %s) and retry is disabled",
				conflict.Expected, conflict.Actual).
				WithContext("expected", string(conflict.Expected)).
				WithContext("actual", string(conflict.Actual))
		}

		merged, remoteVersion, err := s.mergeWithRemote(ctx, working)
		if err != nil {
			s.recorder.IncSaveOutcome(metrics.SaveFailed)
			return err
		}
		working = merged
		base = remoteVersion
		s.recorder.IncMergeApplied()
		slog.Debug("Merged concurrent update, retrying save",
			logfields.Release(s.release), logfields.Version(string(remoteVersion)), logfields.Attempt(attempt))
	}

	s.recorder.IncSaveOutcome(metrics.SaveExhausted)
	return sberr.Newf(sberr.KindConcurrency, "save of %s failed after %d attempts (persistent version conflicts)",
		s.release, maxAttempts)
}

// attemptSave performs one create-or-write attempt. A conflict is returned
// as data, not error, so the caller can distinguish retry-worthy conflicts
// from hard failures.
func (s *StateBox) attemptSave(ctx context.Context, doc *StateDocument, base docstore.Version) (docstore.Version, *docstore.VersionConflictError, error) {
	content, err := Encode(doc)
	if err != nil {
		return "", nil, err
	}

	if base.Zero() {
		version, err := s.store.Create(ctx, s.path, content)
		if err == nil {
			return version, nil, nil
		}
		var exists *docstore.AlreadyExistsError
		if errors.As(err, &exists) {
			// Another writer created the document first; surface as a
			// conflict so the merge path picks up their content.
			return "", &docstore.VersionConflictError{Path: s.path, Expected: base}, nil
		}
		return "", nil, sberr.Wrap(err, sberr.KindBackend, "create state document")
	}

	// Re-read the token immediately before writing to shrink the window
	// between our last load and this write.
	_, current, err := s.store.Read(ctx, s.path)
	if err != nil {
		return "", nil, sberr.Wrap(err, sberr.KindBackend, "refresh version token")
	}
	if current != base {
		return "", &docstore.VersionConflictError{Path: s.path, Expected: base, Actual: current}, nil
	}

	version, err := s.store.Write(ctx, s.path, content, current)
	if err == nil {
		return version, nil, nil
	}
	if vc, ok := docstore.AsVersionConflict(err); ok {
		return "", vc, nil
	}
	return "", nil, sberr.Wrap(err, sberr.KindBackend, "write state document")
}

// mergeWithRemote re-fetches the remote document and merges the local one
// onto it, returning the merged document and the remote version it is now
// based on.
func (s *StateBox) mergeWithRemote(ctx context.Context, local *StateDocument) (*StateDocument, docstore.Version, error) {
	content, version, err := s.store.Read(ctx, s.path)
	if err != nil {
		return nil, "", sberr.Wrap(err, sberr.KindBackend, "re-fetch state document for merge")
	}
	remote, err := Decode(content)
	if err != nil {
		return nil, "", err
	}
	return Merge(local, remote), version, nil
}

// errNoChange signals from a mutation callback that the document is already
// in the requested state; the save and the observer notifications are skipped.
var errNoChange = errors.New("no change")

// mutate is the shared load-modify-save skeleton behind every mutator. The
// callback works on a private clone; with autosave off the mutation is only
// applied to the instance cache, to be persisted by a later explicit Save.
func (s *StateBox) mutate(ctx context.Context, autosave bool, fn func(doc *StateDocument) (Event, error)) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(ctx, false)
	if err != nil {
		return Event{}, err
	}
	working := current.Clone()

	ev, err := fn(working)
	if errors.Is(err, errNoChange) {
		return ev, nil
	}
	if err != nil {
		return Event{}, err
	}

	if !autosave {
		s.cached = working
		return ev, nil
	}
	if err := s.saveLocked(ctx, working, true); err != nil {
		return Event{}, err
	}
	s.notify(ctx, ev)
	return ev, nil
}

func (s *StateBox) notify(ctx context.Context, ev Event) {
	for _, o := range s.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("State observer panicked", logfields.Release(s.release), slog.Any("panic", r))
				}
			}()
			o.OnStateChange(ctx, ev)
		}()
	}
}
