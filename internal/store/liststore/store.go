// Package liststore owns the canonical todo list.
//
// Every change goes through a named command (Add, Toggle, Delete,
// ClearCompleted). Deletions are deferred: the item is first marked
// pending so a renderer can animate it out, and a scheduler timer removes
// it once the removal delay has elapsed. Commands and timer callbacks are
// serialized on one mutex, and listeners are notified synchronously, in
// mutation order, after every change.
package liststore

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/scheduler"
)

// DefaultRemovalDelay is how long an item stays pending before removal.
const DefaultRemovalDelay = 300 * time.Millisecond

// batchPrefix keys clear-completed timers; ULIDs never contain '/'.
const batchPrefix = "clear/"

// Store is the single source of truth for the item list.
type Store struct {
	clock  clockwork.Clock
	logger *zap.Logger
	delay  time.Duration
	sched  *scheduler.Scheduler

	// dispatch is held by whichever goroutine is delivering the outbox.
	dispatch sync.Mutex

	mu        sync.Mutex
	items     []model.Item
	pending   map[string]struct{}
	version   uint64
	entropy   *ulid.MonotonicEntropy
	listeners []subscription
	nextSub   int
	outbox    []State
	draining  bool
	closed    bool
}

type subscription struct {
	id int
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source for creation stamps and removal timers.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRemovalDelay overrides DefaultRemovalDelay. Non-positive values are ignored.
func WithRemovalDelay(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.delay = d
		}
	}
}

// New creates an empty store. Close it to release its scheduler.
func New(opts ...Option) *Store {
	s := &Store{
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
		delay:   DefaultRemovalDelay,
		pending: make(map[string]struct{}),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sched = scheduler.New(
		scheduler.WithClock(s.clock),
		scheduler.WithLogger(s.logger.Named("scheduler")),
	)
	return s
}

// Now reads the store clock, the one creation stamps come from.
func (s *Store) Now() time.Time { return s.clock.Now() }

// RemovalDelay returns the configured removal delay.
func (s *Store) RemovalDelay() time.Duration { return s.delay }

// Add appends a new active item. Whitespace-only text is ignored and
// reported with ok == false.
func (s *Store) Add(text string) (item model.Item, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Item{}, false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Item{}, false
	}
	now := s.clock.Now()
	item = model.Item{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Text:      text,
		CreatedAt: now,
	}
	s.items = append(s.items, item)
	s.logger.Debug("item added", zap.String("id", item.ID))
	s.commitLocked()
	return item, true
}

// Toggle flips the completed flag of id. Unknown ids and items pending
// removal are left alone. It reports whether anything changed.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if s.closed || idx < 0 || s.isPendingLocked(id) {
		s.mu.Unlock()
		return false
	}
	s.items[idx].Completed = !s.items[idx].Completed
	s.logger.Debug("item toggled",
		zap.String("id", id),
		zap.Bool("completed", s.items[idx].Completed),
	)
	s.commitLocked()
	return true
}

// Delete marks id pending and schedules its removal. Unknown ids and ids
// already pending are ignored. It reports whether a removal was scheduled.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	if s.closed || s.indexLocked(id) < 0 || s.isPendingLocked(id) {
		s.mu.Unlock()
		return false
	}
	if !s.sched.Schedule(id, s.delay, func() { s.finalize(id, []string{id}) }) {
		s.mu.Unlock()
		return false
	}
	s.pending[id] = struct{}{}
	s.logger.Debug("removal scheduled", zap.String("id", id), zap.Duration("delay", s.delay))
	s.commitLocked()
	return true
}

// ClearCompleted marks every completed item pending and schedules one
// batch removal for exactly those ids. Items toggled after the call are
// not swept up; pending items cannot be toggled, so the batch cannot go
// stale. It returns the number of items marked.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	var ids []string
	for _, it := range s.items {
		if it.Completed && !s.isPendingLocked(it.ID) {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) == 0 {
		s.mu.Unlock()
		return 0
	}
	key := batchPrefix + ulid.MustNew(ulid.Timestamp(s.clock.Now()), s.entropy).String()
	if !s.sched.Schedule(key, s.delay, func() { s.finalize(key, ids) }) {
		s.mu.Unlock()
		return 0
	}
	for _, id := range ids {
		s.pending[id] = struct{}{}
	}
	s.logger.Debug("batch removal scheduled", zap.String("batch", key), zap.Int("count", len(ids)))
	s.commitLocked()
	return len(ids)
}

// finalize runs on the scheduler goroutine once a removal delay elapses.
func (s *Store) finalize(key string, ids []string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.pending[id]; ok {
			doomed[id] = struct{}{}
			delete(s.pending, id)
		}
	}
	if len(doomed) == 0 {
		s.mu.Unlock()
		return
	}
	kept := make([]model.Item, 0, len(s.items)-len(doomed))
	for _, it := range s.items {
		if _, ok := doomed[it.ID]; !ok {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.logger.Debug("removal finalized", zap.String("key", key), zap.Int("count", len(doomed)))
	s.commitLocked()
}

// State returns a snapshot of the current list.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Items returns a copy of the items in insertion order.
func (s *Store) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.items)
}

// Get returns the item with id, if the store knows it.
func (s *Store) Get(id string) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.items[idx], true
	}
	return model.Item{}, false
}

// IsPending reports whether id is waiting to be removed.
func (s *Store) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPendingLocked(id)
}

// PendingCount returns how many items are waiting to be removed.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ActiveCount counts items that are not completed.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ActiveCount(s.items)
}

// CompletedCount counts completed items, pending ones included.
func (s *Store) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CompletedCount(s.items)
}

// Subscribe registers l for state changes and returns a function that
// unregisters it.
//
// Listeners are called one at a time, in mutation order, before the
// mutating command returns. A listener may read the store or issue further
// commands; those commands are delivered after the current notification.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	if l == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners = append(s.listeners, subscription{id: id, fn: l})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
		})
	}
}

// Close disposes of the store. Pending removals are cancelled and no
// listener is called once Close returns. Commands on a closed store are
// no-ops. Close must not be called from a listener.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// The scheduler may be waiting on mu inside finalize, so close it
	// without holding the lock; finalize sees closed and returns.
	s.sched.Close()

	s.mu.Lock()
	s.listeners = nil
	s.outbox = nil
	s.mu.Unlock()

	// Wait out a delivery that was already in flight.
	s.dispatch.Lock()
	s.dispatch.Unlock()
	s.logger.Debug("store closed")
}

// commitLocked bumps the version and queues a snapshot for listeners. It
// must be called with mu held and returns with mu released. If no other
// goroutine is delivering, the caller drains the queue before returning.
func (s *Store) commitLocked() {
	s.version++
	if len(s.listeners) > 0 {
		s.outbox = append(s.outbox, s.snapshotLocked())
	}
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()
	s.drain()
}

func (s *Store) drain() {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()
	for {
		s.mu.Lock()
		if len(s.outbox) == 0 || s.closed {
			s.outbox = nil
			s.draining = false
			s.mu.Unlock()
			return
		}
		state := s.outbox[0]
		s.outbox = s.outbox[1:]
		listeners := make([]Listener, 0, len(s.listeners))
		for _, sub := range s.listeners {
			listeners = append(listeners, sub.fn)
		}
		s.mu.Unlock()

		for _, l := range listeners {
			l(state)
		}
	}
}

func (s *Store) snapshotLocked() State {
	pending := make(map[string]struct{}, len(s.pending))
	for id := range s.pending {
		pending[id] = struct{}{}
	}
	return State{
		Items:   model.Clone(s.items),
		Pending: pending,
		Version: s.version,
	}
}

func (s *Store) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) isPendingLocked(id string) bool {
	_, ok := s.pending[id]
	return ok
}
