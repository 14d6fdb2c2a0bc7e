package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeTimers struct {
	armed []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) Timer {
	timer := &fakeTimer{delay: d, fn: fn}
	f.armed = append(f.armed, timer)
	return timer
}

func (f *fakeTimers) active() []*fakeTimer {
	out := make([]*fakeTimer, 0, len(f.armed))
	for _, timer := range f.armed {
		if !timer.stopped {
			out = append(out, timer)
		}
	}
	return out
}

type delivery struct {
	payload Payload
	tag     string
}

type fakeSink struct {
	mu         sync.Mutex
	granted    bool
	failWith   error
	deliveries []delivery
}

func (s *fakeSink) RequestPermission(context.Context) error {
	s.granted = true
	return nil
}

func (s *fakeSink) PermissionGranted(context.Context) bool { return s.granted }

func (s *fakeSink) Present(_ context.Context, payload Payload, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, delivery{payload: payload, tag: tag})
	return s.failWith
}

func newTestScheduler(granted bool) (*Scheduler, *fakeClock, *fakeTimers, *fakeSink) {
	clock := &fakeClock{now: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)}
	timers := &fakeTimers{}
	sink := &fakeSink{granted: granted}
	return NewScheduler(sink, WithClock(clock), WithTimers(timers)), clock, timers, sink
}

func TestSchedule_NoopWithoutPermission(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, _ := newTestScheduler(false)
	result := scheduler.Schedule(context.Background(), []schedule.Occurrence{occurrence("1", "2024-03-05", "13:00", 0)})

	assert.True(t, result.Skipped)
	assert.Empty(t, timers.armed)
	assert.Empty(t, scheduler.Pending())
}

func TestSchedule_ArmsOncePerKeyAcrossRepeatedCalls(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, _ := newTestScheduler(true)
	occs := []schedule.Occurrence{
		occurrence("1", "2024-03-05", "13:00", 15),
		occurrence("2", "2024-03-06", "09:00", 0),
		occurrence("3", "2024-03-07", "09:00", 0),
	}

	first := scheduler.Schedule(context.Background(), occs)
	second := scheduler.Schedule(context.Background(), occs)

	assert.Equal(t, 2, first.Armed)
	assert.Equal(t, 0, second.Armed)
	assert.Equal(t, 2, second.Kept)
	require.Len(t, timers.armed, 2)
	assert.Equal(t, 45*time.Minute, timers.armed[0].delay)
	assert.Equal(t, 21*time.Hour, timers.armed[1].delay)
}

func TestSchedule_RearmsChangedAndCancelsRemoved(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, _ := newTestScheduler(true)
	ctx := context.Background()
	scheduler.Schedule(ctx, []schedule.Occurrence{
		occurrence("1", "2024-03-05", "13:00", 0),
		occurrence("2", "2024-03-05", "14:00", 0),
	})

	edited := occurrence("1", "2024-03-05", "13:30", 0)
	result := scheduler.Schedule(ctx, []schedule.Occurrence{edited})

	assert.Equal(t, 1, result.Rearmed)
	assert.Equal(t, 1, result.Cancelled)
	active := timers.active()
	require.Len(t, active, 1)
	assert.Equal(t, 90*time.Minute, active[0].delay)

	pending := scheduler.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "13:30", pending[0].Payload.Time)
}

func TestSchedule_CancelsWhenOffsetMovesFireTimeIntoPast(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, _ := newTestScheduler(true)
	ctx := context.Background()
	scheduler.Schedule(ctx, []schedule.Occurrence{occurrence("1", "2024-03-05", "13:00", 0)})

	result := scheduler.Schedule(ctx, []schedule.Occurrence{occurrence("1", "2024-03-05", "13:00", 120)})

	assert.Equal(t, 1, result.Cancelled)
	assert.Empty(t, timers.active())
}

func TestSchedule_FiredKeyIsNeverRedelivered(t *testing.T) {
	t.Parallel()

	scheduler, clock, timers, sink := newTestScheduler(true)
	ctx := context.Background()
	occs := []schedule.Occurrence{occurrence("1", "2024-03-05", "13:00", 0)}
	scheduler.Schedule(ctx, occs)
	require.Len(t, timers.armed, 1)

	timers.armed[0].fn()
	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, "ev-1-2024-03-05", sink.deliveries[0].tag)
	assert.Equal(t, Payload{Title: "Event 1", Time: "13:00"}, sink.deliveries[0].payload)

	clock.now = clock.now.Add(30 * time.Minute)
	result := scheduler.Schedule(ctx, occs)
	assert.Equal(t, 0, result.Armed)
	require.Len(t, timers.armed, 1)

	timers.armed[0].fn()
	assert.Len(t, sink.deliveries, 1)
}

func TestSchedule_StaleTimerDoesNotDeliver(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, sink := newTestScheduler(true)
	ctx := context.Background()
	scheduler.Schedule(ctx, []schedule.Occurrence{occurrence("1", "2024-03-05", "13:00", 0)})
	scheduler.Schedule(ctx, []schedule.Occurrence{occurrence("1", "2024-03-05", "13:05", 0)})
	require.Len(t, timers.armed, 2)

	timers.armed[0].fn()
	assert.Empty(t, sink.deliveries)

	timers.armed[1].fn()
	require.Len(t, sink.deliveries, 1)
	assert.Equal(t, "13:05", sink.deliveries[0].payload.Time)
}

func TestSchedule_DeliveryErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, sink := newTestScheduler(true)
	sink.failWith = errors.New("bus closed")
	scheduler.Schedule(context.Background(), []schedule.Occurrence{occurrence("1", "2024-03-05", "13:00", 0)})

	timers.armed[0].fn()
	assert.Len(t, sink.deliveries, 1)
	assert.Empty(t, scheduler.Pending())
}

func TestStop_CancelsEverything(t *testing.T) {
	t.Parallel()

	scheduler, _, timers, _ := newTestScheduler(true)
	scheduler.Schedule(context.Background(), []schedule.Occurrence{
		occurrence("1", "2024-03-05", "13:00", 0),
		occurrence("2", "2024-03-05", "15:00", 0),
	})

	scheduler.Stop()
	assert.Empty(t, timers.active())
	assert.Empty(t, scheduler.Pending())
}
