// Package session keeps a local copy of a remote document and persists it
// after a quiet period following each change.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrewsamuelsen/bowen/pkg/utils"
)

// DefaultDelay is the quiet period between the last mutation and the save.
const DefaultDelay = 2000 * time.Millisecond

// ErrNotLoaded is returned by operations that need the initial load.
var ErrNotLoaded = errors.New("session not loaded")

// Remote is the persisted side of a store. Load returns the default shape
// when the document does not exist.
type Remote[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, doc T) error
}

// Store is the local, always-writable copy of one remote document.
type Store[T any] struct {
	name    string
	remote  Remote[T]
	sched   *Scheduler
	logger  *slog.Logger
	baseCtx context.Context
	onError func(name string, err error)

	mu     sync.Mutex
	state  T
	loaded bool

	saveMu   sync.Mutex
	failures atomic.Int64
	saves    atomic.Int64
}

// Option configures a Store.
type Option func(*options)

type options struct {
	delay   time.Duration
	logger  *slog.Logger
	ctx     context.Context
	onError func(string, error)
}

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

// WithLogger sets the logger used for dropped saves.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithContext sets the context scheduled saves run under.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithErrorHandler is called after a scheduled save fails.
func WithErrorHandler(fn func(name string, err error)) Option {
	return func(o *options) { o.onError = fn }
}

// NewStore creates a store holding initial until Load succeeds.
func NewStore[T any](name string, remote Remote[T], initial T, opts ...Option) *Store[T] {
	o := options{delay: DefaultDelay, logger: utils.GetLogger(), ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		name:    name,
		remote:  remote,
		sched:   NewScheduler(o.delay),
		logger:  o.logger.With("store", name),
		baseCtx: o.ctx,
		onError: o.onError,
		state:   initial,
	}
}

// Load fetches the remote document and opens the save gate. On failure
// the gate stays closed so the default state never overwrites remote data.
func (s *Store[T]) Load(ctx context.Context) error {
	doc, err := s.remote.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.name, err)
	}
	s.mu.Lock()
	s.state = doc
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Loaded reports whether the initial load completed.
func (s *Store[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Mutate applies fn to the local state and re-arms the save timer. Before
// the initial load the change stays local.
func (s *Store[T]) Mutate(fn func(*T)) {
	s.mu.Lock()
	fn(&s.state)
	loaded := s.loaded
	s.mu.Unlock()
	if loaded {
		s.sched.Arm(s.save)
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store[T]) Snapshot() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.state)
}

// Dirty reports whether a save is waiting on the timer.
func (s *Store[T]) Dirty() bool {
	return s.sched.Pending()
}

// Flush persists a pending change now and returns the save error.
func (s *Store[T]) Flush(ctx context.Context) error {
	if !s.sched.Pending() {
		return nil
	}
	s.sched.Cancel()
	return s.persist(ctx)
}

// Close drops any pending save.
func (s *Store[T]) Close() {
	s.sched.Cancel()
}

// Failures counts scheduled saves that were dropped after an error.
func (s *Store[T]) Failures() int64 {
	return s.failures.Load()
}

// Saves counts successful saves.
func (s *Store[T]) Saves() int64 {
	return s.saves.Load()
}

func (s *Store[T]) save() {
	if err := s.persist(s.baseCtx); err != nil {
		s.failures.Add(1)
		s.logger.Warn("Save dropped", "error", err)
		if s.onError != nil {
			s.onError(s.name, err)
		}
	}
}

// persist writes the latest state. Saves are serialized so an older
// snapshot never lands after a newer one.
func (s *Store[T]) persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	doc := s.Snapshot()
	if err := s.remote.Save(ctx, doc); err != nil {
		return fmt.Errorf("save %s: %w", s.name, err)
	}
	s.saves.Add(1)
	return nil
}

// clone deep-copies a document through its JSON form, which is also its
// persisted form.
func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
