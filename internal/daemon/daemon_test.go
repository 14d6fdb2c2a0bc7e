package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbright/waybar-calendar/internal/reminder"
	"github.com/rbright/waybar-calendar/internal/schedule"
)

type staticSource struct {
	mu       sync.Mutex
	snapshot schedule.Snapshot
	err      error
	calls    int
}

func (s *staticSource) Snapshot(context.Context) (schedule.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.snapshot, s.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type nopTimer struct{}

func (nopTimer) Stop() bool { return true }

type countingTimers struct {
	mu    sync.Mutex
	armed int
}

func (c *countingTimers) AfterFunc(time.Duration, func()) reminder.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed++
	return nopTimer{}
}

type grantingSink struct {
	mu        sync.Mutex
	requested int
}

func (s *grantingSink) RequestPermission(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested++
	return nil
}

func (s *grantingSink) PermissionGranted(context.Context) bool { return true }

func (s *grantingSink) Present(context.Context, reminder.Payload, string) error { return nil }

func testSnapshot() schedule.Snapshot {
	return schedule.Snapshot{
		Calendars: []schedule.Calendar{{ID: "cal-work", Name: "Work", Visible: true}},
		Events: []schedule.Event{
			{ID: "1", Date: schedule.MustParseDate("2024-03-01"), Time: "09:00", Text: "Standup", CalendarID: "cal-work", Recurrence: schedule.RecurrenceDaily, ReminderMinutes: 10},
			{ID: "2", Date: schedule.MustParseDate("2024-03-10"), Time: "09:00", Text: "Later", CalendarID: "cal-work"},
		},
	}
}

func TestReconcile_ArmsOccurrencesInsideHorizon(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	timers := &countingTimers{}
	scheduler := reminder.NewScheduler(&grantingSink{}, reminder.WithClock(fixedClock{now}), reminder.WithTimers(timers))
	source := &staticSource{snapshot: testSnapshot()}

	var synced int
	d := New(source, &grantingSink{}, scheduler, WithClock(fixedClock{now}), WithAfterSync(func(context.Context, schedule.Snapshot) { synced++ }))

	result, err := d.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Armed)
	assert.Equal(t, 1, synced)

	result, err = d.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Armed)
	assert.Equal(t, 1, result.Kept)
	assert.Equal(t, 1, timers.armed)
}

func TestReconcile_PropagatesSnapshotErrors(t *testing.T) {
	t.Parallel()

	scheduler := reminder.NewScheduler(&grantingSink{}, reminder.WithTimers(&countingTimers{}))
	d := New(&staticSource{err: errors.New("disk gone")}, &grantingSink{}, scheduler)

	_, err := d.Reconcile(context.Background())
	assert.ErrorContains(t, err, "disk gone")
}

func TestRun_RequestsPermissionAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	sink := &grantingSink{}
	scheduler := reminder.NewScheduler(sink, reminder.WithTimers(&countingTimers{}))
	source := &staticSource{snapshot: testSnapshot()}
	d := New(source, sink, scheduler, WithRescan("@every 1h"), WithWatch(t.TempDir(), "events.json"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return source.calls >= 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.Equal(t, 1, sink.requested)
}

func TestRun_RejectsBadRescanSpec(t *testing.T) {
	t.Parallel()

	sink := &grantingSink{}
	scheduler := reminder.NewScheduler(sink, reminder.WithTimers(&countingTimers{}))
	d := New(&staticSource{snapshot: testSnapshot()}, sink, scheduler, WithRescan("every so often"))

	err := d.Run(context.Background())
	assert.Error(t, err)
}

func TestRescanParser_AcceptsCommonSpecs(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"@every 5m", "*/10 * * * *", "0 */10 * * * *", "@hourly"} {
		_, err := rescanParser.Parse(spec)
		assert.NoError(t, err, spec)
	}
	_, err := rescanParser.Parse("every so often")
	assert.Error(t, err)
}

func TestRelevant_FiltersByFileAndOp(t *testing.T) {
	t.Parallel()

	d := New(&staticSource{}, &grantingSink{}, nil, WithWatch("/state", "events.json", "calendars.json"))

	assert.True(t, d.relevant(fsnotify.Event{Name: "/state/events.json", Op: fsnotify.Create}))
	assert.True(t, d.relevant(fsnotify.Event{Name: "/state/calendars.json", Op: fsnotify.Write}))
	assert.False(t, d.relevant(fsnotify.Event{Name: "/state/.tmp-123", Op: fsnotify.Create}))
	assert.False(t, d.relevant(fsnotify.Event{Name: "/state/events.json", Op: fsnotify.Chmod}))
}
