package reminder

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

const defaultDeliveryTimeout = 10 * time.Second

// Sink presents reminders to the user.
type Sink interface {
	RequestPermission(ctx context.Context) error
	PermissionGranted(ctx context.Context) bool
	Present(ctx context.Context, payload Payload, tag string) error
}

type Clock interface {
	Now() time.Time
}

type Timer interface {
	Stop() bool
}

// Timers arms one-shot callbacks.
type Timers interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type SystemTimers struct{}

func (SystemTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Result counts what one Schedule pass changed.
type Result struct {
	Planned   int  `json:"planned"`
	Armed     int  `json:"armed"`
	Kept      int  `json:"kept"`
	Rearmed   int  `json:"rearmed"`
	Cancelled int  `json:"cancelled"`
	Skipped   bool `json:"skipped"`
}

type armedReminder struct {
	Reminder
	timer      Timer
	generation uint64
}

type Scheduler struct {
	sink            Sink
	clock           Clock
	timers          Timers
	logger          zerolog.Logger
	deliveryTimeout time.Duration

	mu         sync.Mutex
	generation uint64
	armed      map[Key]*armedReminder
	fired      map[Key]struct{}
}

type Option func(*Scheduler)

func WithClock(clock Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

func WithTimers(timers Timers) Option {
	return func(s *Scheduler) { s.timers = timers }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.deliveryTimeout = timeout
		}
	}
}

func NewScheduler(sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:            sink,
		clock:           SystemClock{},
		timers:          SystemTimers{},
		logger:          zerolog.Nop(),
		deliveryTimeout: defaultDeliveryTimeout,
		armed:           make(map[Key]*armedReminder),
		fired:           make(map[Key]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule reconciles armed timers with the given occurrences. Identical
// reminders stay armed, changed ones are re-armed, and reminders whose
// occurrence disappeared are cancelled. A key that already fired is never
// delivered again. Without sink permission this is a no-op.
func (s *Scheduler) Schedule(ctx context.Context, occurrences []schedule.Occurrence) Result {
	if !s.sink.PermissionGranted(ctx) {
		s.logger.Debug().Msg("notification permission not granted; skipping reminders")
		return Result{Skipped: true}
	}

	now := s.clock.Now()
	plan := Plan(occurrences, now)

	present := make(map[Key]struct{}, len(occurrences))
	for _, occ := range occurrences {
		present[Key{EventID: occ.ID, OccDate: occ.OccDate}] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := Result{Planned: len(plan)}
	planned := make(map[Key]struct{}, len(plan))
	for _, r := range plan {
		planned[r.Key] = struct{}{}
		if _, done := s.fired[r.Key]; done {
			continue
		}

		if existing, ok := s.armed[r.Key]; ok {
			if existing.FireAt.Equal(r.FireAt) && existing.Payload == r.Payload {
				result.Kept++
				continue
			}
			existing.timer.Stop()
			result.Rearmed++
		} else {
			result.Armed++
		}
		s.arm(r, now)
	}

	for key, existing := range s.armed {
		if _, ok := planned[key]; ok {
			continue
		}
		_, stillThere := present[key]
		if stillThere && !existing.FireAt.After(now) {
			continue
		}
		existing.timer.Stop()
		delete(s.armed, key)
		result.Cancelled++
	}

	today := schedule.DateOf(now)
	for key := range s.fired {
		if key.OccDate.Before(today) {
			delete(s.fired, key)
		}
	}

	s.logger.Debug().
		Int("planned", result.Planned).
		Int("armed", result.Armed).
		Int("kept", result.Kept).
		Int("rearmed", result.Rearmed).
		Int("cancelled", result.Cancelled).
		Msg("reminders reconciled")
	return result
}

// arm must be called with s.mu held.
func (s *Scheduler) arm(r Reminder, now time.Time) {
	s.generation++
	generation := s.generation
	key := r.Key

	entry := &armedReminder{Reminder: r, generation: generation}
	entry.timer = s.timers.AfterFunc(r.FireAt.Sub(now), func() {
		s.fire(key, generation)
	})
	s.armed[key] = entry
}

func (s *Scheduler) fire(key Key, generation uint64) {
	s.mu.Lock()
	entry, ok := s.armed[key]
	if !ok || entry.generation != generation {
		s.mu.Unlock()
		return
	}
	delete(s.armed, key)
	s.fired[key] = struct{}{}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
	defer cancel()

	if err := s.sink.Present(ctx, entry.Payload, key.Tag()); err != nil {
		s.logger.Warn().Err(err).Str("tag", key.Tag()).Msg("reminder delivery failed")
		return
	}
	s.logger.Info().Str("tag", key.Tag()).Str("title", entry.Payload.Title).Msg("reminder delivered")
}

// Pending lists armed reminders ordered by fire time.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]Reminder, 0, len(s.armed))
	for _, entry := range s.armed {
		pending = append(pending, entry.Reminder)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if !pending[i].FireAt.Equal(pending[j].FireAt) {
			return pending[i].FireAt.Before(pending[j].FireAt)
		}
		return pending[i].Key.Tag() < pending[j].Key.Tag()
	})
	return pending
}

// Stop cancels every armed timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.armed {
		entry.timer.Stop()
		delete(s.armed, key)
	}
}
