package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/reminder"
	"github.com/rbright/waybar-calendar/internal/schedule"
)

const DefaultRescan = "@every 5m"

// rescanParser accepts standard five-field specs, an optional leading
// seconds field and descriptors such as @every.
var rescanParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SnapshotSource hands out a fresh, complete view of the store.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (schedule.Snapshot, error)
}

// Daemon keeps reminder timers in sync with the store. It reconciles at
// start, on every rescan tick and whenever a watched state file changes.
type Daemon struct {
	source    SnapshotSource
	sink      reminder.Sink
	scheduler *reminder.Scheduler
	clock     reminder.Clock
	logger    zerolog.Logger

	rescan     string
	watchDir   string
	watchFiles map[string]struct{}
	afterSync  func(ctx context.Context, snapshot schedule.Snapshot)

	mu sync.Mutex
}

type Option func(*Daemon)

func WithRescan(spec string) Option {
	return func(d *Daemon) {
		if spec != "" {
			d.rescan = spec
		}
	}
}

// WithWatch reconciles when any of files inside dir is written or replaced.
func WithWatch(dir string, files ...string) Option {
	return func(d *Daemon) {
		d.watchDir = dir
		for _, name := range files {
			d.watchFiles[filepath.Base(name)] = struct{}{}
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Daemon) { d.logger = logger }
}

func WithClock(clock reminder.Clock) Option {
	return func(d *Daemon) { d.clock = clock }
}

// WithAfterSync runs after every successful reconcile, with the snapshot it used.
func WithAfterSync(fn func(ctx context.Context, snapshot schedule.Snapshot)) Option {
	return func(d *Daemon) { d.afterSync = fn }
}

func New(source SnapshotSource, sink reminder.Sink, scheduler *reminder.Scheduler, opts ...Option) *Daemon {
	d := &Daemon{
		source:     source,
		sink:       sink,
		scheduler:  scheduler,
		clock:      reminder.SystemClock{},
		logger:     zerolog.Nop(),
		rescan:     DefaultRescan,
		watchFiles: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reconcile recomputes the occurrences that could fire within the reminder
// horizon and hands them to the scheduler.
func (d *Daemon) Reconcile(ctx context.Context) (reminder.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot, err := d.source.Snapshot(ctx)
	if err != nil {
		return reminder.Result{}, fmt.Errorf("load snapshot: %w", err)
	}

	window := reminder.CandidateWindow(d.clock.Now(), snapshot.Events)
	result := d.scheduler.Schedule(ctx, snapshot.Aggregate(window))

	if d.afterSync != nil {
		d.afterSync(ctx, snapshot)
	}
	return result, nil
}

// Run blocks until ctx is cancelled. Notification permission is requested
// once; without it reconciles still run but arm nothing.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.sink.RequestPermission(ctx); err != nil {
		d.logger.Warn().Err(err).Msg("notification permission unavailable; reminders disabled")
	}

	d.reconcile(ctx, "start")

	c := cron.New(cron.WithParser(rescanParser), cron.WithLocation(time.Local))
	if _, err := c.AddFunc(d.rescan, func() { d.reconcile(ctx, "rescan") }); err != nil {
		return fmt.Errorf("add rescan %q: %w", d.rescan, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
		d.scheduler.Stop()
	}()

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	if d.watchDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer func() {
			_ = watcher.Close()
		}()
		if err := watcher.Add(d.watchDir); err != nil {
			return fmt.Errorf("watch %s: %w", d.watchDir, err)
		}
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	d.logger.Info().Str("rescan", d.rescan).Str("watch", d.watchDir).Msg("reminder daemon started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("reminder daemon stopped")
			return nil
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if d.relevant(event) {
				d.reconcile(ctx, "change")
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			d.logger.Warn().Err(err).Msg("state watcher error")
		}
	}
}

func (d *Daemon) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if len(d.watchFiles) == 0 {
		return true
	}
	_, ok := d.watchFiles[filepath.Base(event.Name)]
	return ok
}

func (d *Daemon) reconcile(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	result, err := d.Reconcile(ctx)
	if err != nil {
		d.logger.Error().Err(err).Str("reason", reason).Msg("reconcile failed")
		return
	}
	d.logger.Debug().
		Str("reason", reason).
		Int("armed", result.Armed).
		Int("rearmed", result.Rearmed).
		Int("cancelled", result.Cancelled).
		Bool("skipped", result.Skipped).
		Msg("reconciled")
}
