package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	delay   = 300 * time.Millisecond
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestScheduler(t *testing.T) (*Scheduler, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	s := New(WithClock(clock))
	t.Cleanup(s.Close)
	return s, clock
}

// advance moves clock by d once the loop has armed its timer.
func advance(t *testing.T, clock *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(d)
}

// recorder collects fired keys in order.
type recorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *recorder) fn(key string) func() {
	return func() {
		r.mu.Lock()
		r.keys = append(r.keys, key)
		r.mu.Unlock()
	}
}

func (r *recorder) fired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func TestScheduleFiresAfterDelay(t *testing.T) {
	s, clock := newTestScheduler(t)
	rec := &recorder{}

	require.True(t, s.Schedule("a", delay, rec.fn("a")))
	assert.Equal(t, 1, s.Pending())
	assert.True(t, s.Armed("a"))

	advance(t, clock, delay-time.Millisecond)
	assert.Never(t, func() bool { return len(rec.fired()) > 0 }, 50*time.Millisecond, tick)

	advance(t, clock, time.Millisecond)
	require.Eventually(t, func() bool { return len(rec.fired()) == 1 }, waitFor, tick)
	assert.Equal(t, 0, s.Pending())
	assert.False(t, s.Armed("a"))
}

func TestScheduleSameKeyArmsOnce(t *testing.T) {
	s, clock := newTestScheduler(t)
	rec := &recorder{}

	require.True(t, s.Schedule("a", delay, rec.fn("first")))
	require.False(t, s.Schedule("a", delay, rec.fn("second")))
	assert.Equal(t, 1, s.Pending())

	advance(t, clock, delay)
	require.Eventually(t, func() bool { return len(rec.fired()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"first"}, rec.fired())

	// Once fired, the key can be armed again.
	require.True(t, s.Schedule("a", delay, rec.fn("third")))
}

func TestFiringOrderFollowsArmOrder(t *testing.T) {
	s, clock := newTestScheduler(t)
	rec := &recorder{}

	for _, k := range []string{"c", "a", "b"} {
		require.True(t, s.Schedule(k, delay, rec.fn(k)))
	}
	require.True(t, s.Schedule("early", delay/2, rec.fn("early")))

	advance(t, clock, delay)
	require.Eventually(t, func() bool { return len(rec.fired()) == 4 }, waitFor, tick)
	assert.Equal(t, []string{"early", "c", "a", "b"}, rec.fired())
}

func TestCancel(t *testing.T) {
	s, clock := newTestScheduler(t)
	rec := &recorder{}

	require.True(t, s.Schedule("a", delay, rec.fn("a")))
	require.True(t, s.Schedule("b", delay, rec.fn("b")))

	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))
	assert.False(t, s.Cancel("missing"))

	advance(t, clock, delay)
	require.Eventually(t, func() bool { return len(rec.fired()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"b"}, rec.fired())
}

func TestCancelAll(t *testing.T) {
	s, clock := newTestScheduler(t)
	var calls atomic.Int32

	for _, k := range []string{"a", "b", "c"} {
		require.True(t, s.Schedule(k, delay, func() { calls.Add(1) }))
	}
	assert.Equal(t, 3, s.CancelAll())
	assert.Equal(t, 0, s.Pending())

	clock.Advance(2 * delay)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, tick)
}

func TestCancelledWhileEarlierCallbackRuns(t *testing.T) {
	s, clock := newTestScheduler(t)
	rec := &recorder{}

	require.True(t, s.Schedule("a", delay, func() {
		rec.fn("a")()
		s.Cancel("b")
	}))
	require.True(t, s.Schedule("b", delay, rec.fn("b")))

	advance(t, clock, delay)
	require.Eventually(t, func() bool { return len(rec.fired()) == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return len(rec.fired()) > 1 }, 50*time.Millisecond, tick)
	assert.Equal(t, []string{"a"}, rec.fired())
}

func TestCloseCancelsAndRejects(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(WithClock(clock))
	var calls atomic.Int32

	require.True(t, s.Schedule("a", delay, func() { calls.Add(1) }))
	s.Close()
	s.Close()

	assert.False(t, s.Schedule("b", delay, func() { calls.Add(1) }))
	assert.Equal(t, 0, s.Pending())

	clock.Advance(2 * delay)
	assert.Never(t, func() bool { return calls.Load() > 0 }, 50*time.Millisecond, tick)
}

func TestRealClock(t *testing.T) {
	s := New()
	defer s.Close()
	done := make(chan struct{})

	require.True(t, s.Schedule("a", 10*time.Millisecond, func() { close(done) }))
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for timer")
	}
}

// slowArmClock moves time forward while the first timer is being created,
// the way a busy machine or another goroutine might.
type slowArmClock struct {
	*clockwork.FakeClock
	jump time.Duration
	once sync.Once
}

func (c *slowArmClock) NewTimer(d time.Duration) clockwork.Timer {
	c.once.Do(func() { c.FakeClock.Advance(c.jump) })
	return c.FakeClock.NewTimer(d)
}

func TestClockMovingWhileArmingDoesNotDelayTimer(t *testing.T) {
	clock := &slowArmClock{FakeClock: clockwork.NewFakeClock(), jump: delay - time.Millisecond}
	s := New(WithClock(clock))
	t.Cleanup(s.Close)
	rec := &recorder{}
	start := clock.Now()

	require.True(t, s.Schedule("k", delay, rec.fn("k")))
	require.Eventually(t, func() bool {
		return clock.Since(start) >= delay-time.Millisecond
	}, waitFor, tick)
	assert.Never(t, func() bool { return len(rec.fired()) > 0 }, 50*time.Millisecond, tick)

	advance(t, clock.FakeClock, time.Millisecond)
	require.Eventually(t, func() bool { return len(rec.fired()) == 1 }, waitFor, tick)
	assert.Equal(t, delay, clock.Since(start))
}
