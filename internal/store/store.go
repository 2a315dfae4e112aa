// Package store holds the in-memory todo collection, persists it to a
// key-value backend and notifies a single listener on every mutation.
package store

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/starford/auw/internal/kv"
	"github.com/starford/auw/internal/models"
)

// DefaultKey is the backend key holding the persisted collection.
const DefaultKey = "auw-todos"

type options struct {
	key    string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithKey sets the backend key. Defaults to DefaultKey.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Store maps ids to todo records.
//
// Every mutation runs the change pipeline: a persistence run is scheduled on
// the store's persister goroutine, then the listener is called synchronously.
// Persistence is therefore not complete when Add or Remove return; use Flush
// to wait for it.
type Store struct {
	backend kv.Backend
	key     string
	logger  *slog.Logger

	mu       sync.Mutex
	records  map[int64]models.Todo
	nextID   int64
	onChange func()

	persistCh chan struct{}
	flushCh   chan chan error
	stopCh    chan struct{}
	stopped   chan struct{}
	closed    atomic.Bool
}

// Restore loads the collection stored under the configured key and returns a
// new Store. An absent key yields an empty store; a malformed payload is an
// error. No change listener is registered.
func Restore(ctx context.Context, backend kv.Backend, opts ...Option) (*Store, error) {
	o := buildOptions(opts)
	raw, ok, err := backend.GetItem(ctx, o.key)
	if err != nil {
		return nil, fmt.Errorf("store: restore: %w", err)
	}
	var records []models.Todo
	if ok {
		if records, err = Decode(raw); err != nil {
			return nil, err
		}
	}
	s := New(backend, records, opts...)
	s.logger.Debug("store restored", slog.String("key", s.key), slog.Int("count", s.Len()))
	return s, nil
}

// New returns a Store holding records. Records without an id get one.
func New(backend kv.Backend, records []models.Todo, opts ...Option) *Store {
	o := buildOptions(opts)
	s := &Store{
		backend:   backend,
		key:       o.key,
		logger:    o.logger,
		records:   make(map[int64]models.Todo, len(records)),
		nextID:    1,
		persistCh: make(chan struct{}, 1),
		flushCh:   make(chan chan error),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, r := range records {
		s.reserve(r.ID)
	}
	for _, r := range records {
		if r.ID == 0 {
			r.ID = s.nextID
			s.nextID++
		}
		s.records[r.ID] = r
	}

	go s.run()
	return s
}

func buildOptions(opts []Option) options {
	o := options{key: DefaultKey, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Key returns the backend key the store persists to.
func (s *Store) Key() string { return s.key }

// OnChange sets the change listener, replacing any previous one. nil clears it.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Add inserts todo, overwriting any record with the same id, and returns the
// stored record. A zero id is replaced by the next free id.
func (s *Store) Add(todo models.Todo) models.Todo {
	s.mu.Lock()
	if todo.ID == 0 {
		todo.ID = s.nextID
		s.nextID++
	} else {
		s.reserve(todo.ID)
	}
	s.records[todo.ID] = todo
	s.mu.Unlock()

	s.changed()
	return todo
}

// reserve moves the allocator past id. The largest int64 has no successor and
// leaves the allocator where it is.
func (s *Store) reserve(id int64) {
	if id >= s.nextID && id < math.MaxInt64 {
		s.nextID = id + 1
	}
}

// Remove deletes the record with the given id. Absent ids are ignored, but
// the change pipeline still runs.
func (s *Store) Remove(id int64) {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()

	s.changed()
}

// Get returns the record with the given id.
func (s *Store) Get(id int64) (models.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.records[id]
	return t, ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ForEach calls fn for every record in ascending id order. fn runs without
// the store lock held and may call back into the store.
func (s *Store) ForEach(fn func(models.Todo)) {
	for _, t := range s.snapshot() {
		fn(t)
	}
}

// AsArray returns the records ordered by priority, highest first. Records with
// equal priority keep ascending id order.
func (s *Store) AsArray() []models.Todo {
	out := s.snapshot()
	slices.SortStableFunc(out, func(a, b models.Todo) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return out
}

func (s *Store) snapshot() []models.Todo {
	s.mu.Lock()
	out := make([]models.Todo, 0, len(s.records))
	for _, t := range s.records {
		out = append(out, t)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Todo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) changed() {
	s.schedulePersist()

	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// schedulePersist queues a persistence run. A run already queued covers this
// change too, since every run writes the state current at the time it runs.
func (s *Store) schedulePersist() {
	if s.closed.Load() {
		s.logger.Warn("store closed, change not persisted", slog.String("key", s.key))
		return
	}
	select {
	case s.persistCh <- struct{}{}:
	default:
	}
}

// Persist synchronously overwrites the backend key with the current collection.
func (s *Store) Persist(ctx context.Context) error {
	records := s.AsArray()
	payload, err := Encode(records)
	if err != nil {
		return err
	}
	if err := s.backend.SetItem(ctx, s.key, payload); err != nil {
		return fmt.Errorf("store: persist: %w", err)
	}
	s.logger.Info("store persisted", slog.String("key", s.key), slog.Int("count", len(records)))
	return nil
}

func (s *Store) persistLogged() error {
	err := s.Persist(context.Background())
	if err != nil {
		s.logger.Error("store persist failed", slog.String("key", s.key), slog.String("error", err.Error()))
	}
	return err
}

// run is the persister loop. It owns the scheduling of writes; the record map
// itself is guarded by mu.
func (s *Store) run() {
	defer close(s.stopped)

	var lastErr error
	drain := func() {
		select {
		case <-s.persistCh:
			lastErr = s.persistLogged()
		default:
		}
	}

	for {
		select {
		case <-s.stopCh:
			drain()
			return

		case <-s.persistCh:
			lastErr = s.persistLogged()

		case resp := <-s.flushCh:
			drain()
			resp <- lastErr
		}
	}
}

// Flush waits until every persistence run scheduled before the call has
// completed and returns the error of the most recent run.
func (s *Store) Flush(ctx context.Context) error {
	if s.closed.Load() {
		return nil
	}
	resp := make(chan error, 1)
	select {
	case s.flushCh <- resp:
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close runs any pending persistence and stops the persister. Changes made
// after Close are kept in memory only.
func (s *Store) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}
