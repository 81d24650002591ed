// Package scheduler runs delayed callbacks on a single goroutine.
//
// Every armed callback is keyed, so a key can be armed at most once at a
// time. Callbacks fire one at a time in deadline order (ties broken by the
// order they were armed), which lets callers treat a callback as just
// another serialized step of their own state machine.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Scheduler arms keyed, cancellable one-shot timers.
type Scheduler struct {
	clock  clockwork.Clock
	logger *zap.Logger

	mu     sync.Mutex
	queue  timerQueue
	byKey  map[string]*timer
	seq    uint64
	closed bool

	wake chan struct{}
	done chan struct{}
	exit chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source. Tests pass a clockwork fake clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger used for scheduling diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New starts a scheduler. Callers must Close it to stop the loop goroutine.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
		byKey:  make(map[string]*timer),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exit:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

// Schedule arms fn to run once after delay. It returns false, arming
// nothing, when key is already armed or the scheduler is closed.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	if fn == nil {
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, ok := s.byKey[key]; ok {
		s.mu.Unlock()
		s.logger.Debug("timer already armed", zap.String("key", key))
		return false
	}
	s.seq++
	t := &timer{
		key:      key,
		deadline: s.clock.Now().Add(delay),
		seq:      s.seq,
		fn:       fn,
	}
	heap.Push(&s.queue, t)
	s.byKey[key] = t
	s.mu.Unlock()

	s.logger.Debug("timer armed", zap.String("key", key), zap.Duration("delay", delay))
	s.poke()
	return true
}

// Cancel disarms the timer for key. It reports whether a timer was armed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	t, ok := s.byKey[key]
	if ok {
		s.removeLocked(t)
	}
	s.mu.Unlock()
	if ok {
		s.poke()
	}
	return ok
}

// CancelAll disarms every timer and returns how many were armed.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	n := s.cancelAllLocked()
	s.mu.Unlock()
	if n > 0 {
		s.logger.Debug("timers cancelled", zap.Int("count", n))
		s.poke()
	}
	return n
}

// Armed reports whether a timer is armed for key.
func (s *Scheduler) Armed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byKey[key]
	return ok
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}

// Close cancels every timer and stops the loop. It returns once no
// callback is running and none ever will. Close is idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.exit
		return
	}
	s.closed = true
	n := s.cancelAllLocked()
	s.mu.Unlock()

	close(s.done)
	<-s.exit
	s.logger.Debug("scheduler closed", zap.Int("cancelled", n))
}

// armSlack is how far the clock may move while a timer is being armed
// before the timer is considered late and armed again.
const armSlack = 100 * time.Microsecond

// stale reports whether a timer armed for wait no longer matches the head
// of the queue: the head is due, or the clock moved while arming so the
// timer would fire late.
func (s *Scheduler) stale(wait time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return false
	}
	left := s.queue[0].deadline.Sub(s.clock.Now())
	return left <= 0 || left < wait-armSlack
}

func (s *Scheduler) cancelAllLocked() int {
	n := len(s.byKey)
	for _, t := range s.byKey {
		t.cancelled = true
		t.index = -1
	}
	s.byKey = make(map[string]*timer)
	s.queue = s.queue[:0]
	return n
}

func (s *Scheduler) removeLocked(t *timer) {
	t.cancelled = true
	delete(s.byKey, t.key)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer close(s.exit)
	for {
		s.mu.Lock()
		var wait time.Duration
		armed := len(s.queue) > 0
		if armed {
			wait = s.queue[0].deadline.Sub(s.clock.Now())
		}
		s.mu.Unlock()

		if armed && wait <= 0 {
			s.fireDue()
			continue
		}

		var (
			tm    clockwork.Timer
			fired <-chan time.Time
		)
		if armed {
			tm = s.clock.NewTimer(wait)
			fired = tm.Chan()
			// Time that passed between measuring and arming delays the
			// timer by as much; a fake clock would never make that up.
			if s.stale(wait) {
				tm.Stop()
				continue
			}
		}

		select {
		case <-s.done:
			if tm != nil {
				tm.Stop()
			}
			return
		case <-s.wake:
		case <-fired:
		}
		if tm != nil {
			tm.Stop()
		}
	}
}

// fireDue pops every timer whose deadline has passed and runs them in
// order. A timer cancelled while earlier callbacks ran is skipped.
func (s *Scheduler) fireDue() {
	s.mu.Lock()
	now := s.clock.Now()
	var due []*timer
	for len(s.queue) > 0 && !s.queue[0].deadline.After(now) {
		due = append(due, heap.Pop(&s.queue).(*timer))
	}
	s.mu.Unlock()

	for _, t := range due {
		s.mu.Lock()
		run := !t.cancelled && !s.closed && s.byKey[t.key] == t
		if run {
			delete(s.byKey, t.key)
		}
		s.mu.Unlock()
		if !run {
			continue
		}
		s.logger.Debug("timer fired", zap.String("key", t.key))
		t.fn()
	}
}
