package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/schedule"
	"github.com/rbright/waybar-calendar/internal/state"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrCalendarNotFound  = errors.New("calendar not found")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidTime       = errors.New("invalid time")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrNegativeReminder  = errors.New("reminder minutes must not be negative")
	ErrEmptyName         = errors.New("calendar name is required")
)

const (
	DefaultEventTime       = "09:00"
	DefaultReminderMinutes = 15
	DefaultCalendarColor   = "#1e88ff"
)

// Service applies user mutations to the store. Each mutation loads a fresh
// snapshot, edits a copy and saves the whole mapping back.
type Service struct {
	store  state.Store
	logger zerolog.Logger
	newID  func() string

	mu sync.Mutex
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithIDGenerator replaces the uuid source used for new ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func New(store state.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: zerolog.Nop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot loads calendars and the flattened events.
func (s *Service) Snapshot(ctx context.Context) (schedule.Snapshot, error) {
	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return schedule.Snapshot{}, err
	}
	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return schedule.Snapshot{}, err
	}
	return schedule.Snapshot{Calendars: calendars, Events: buckets.Flatten()}, nil
}

func (s *Service) Calendars(ctx context.Context) ([]schedule.Calendar, error) {
	return s.store.LoadCalendars(ctx)
}

func (s *Service) Event(ctx context.Context, id schedule.EventID) (schedule.Event, error) {
	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return schedule.Event{}, err
	}
	event, ok := buckets.Find(id)
	if !ok {
		return schedule.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return event, nil
}

func truncateText(text string) string {
	if utf8.RuneCountInString(text) <= schedule.MaxTextLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:schedule.MaxTextLength])
}

func hasCalendar(calendars []schedule.Calendar, id string) bool {
	for _, calendar := range calendars {
		if calendar.ID == id {
			return true
		}
	}
	return false
}

func cleanName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	return trimmed, nil
}
