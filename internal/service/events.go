package service

import (
	"context"
	"fmt"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

// EventInput is the full form for a new event.
type EventInput struct {
	Date            string
	Time            string
	Text            string
	CalendarID      string
	Recurrence      string
	ReminderMinutes int
}

// DefaultEventInput returns the prefilled form for date.
func DefaultEventInput(date schedule.Date, calendars []schedule.Calendar) EventInput {
	in := EventInput{
		Date:            date.Key(),
		Time:            DefaultEventTime,
		Recurrence:      string(schedule.RecurrenceNone),
		ReminderMinutes: DefaultReminderMinutes,
	}
	if len(calendars) > 0 {
		in.CalendarID = calendars[0].ID
	}
	return in
}

// EventPatch lists the fields an edit changes; nil fields are kept.
type EventPatch struct {
	Date            *string
	Time            *string
	Text            *string
	CalendarID      *string
	Recurrence      *string
	ReminderMinutes *int
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (schedule.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return schedule.Event{}, err
	}
	if in.CalendarID == "" && len(calendars) > 0 {
		in.CalendarID = calendars[0].ID
	}

	event, err := buildEvent(schedule.EventID(s.newID()), in, calendars)
	if err != nil {
		return schedule.Event{}, err
	}

	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return schedule.Event{}, err
	}
	if err := s.store.SaveEvents(ctx, buckets.Replace(event)); err != nil {
		return schedule.Event{}, err
	}

	s.logger.Info().Str("event_id", string(event.ID)).Str("date", event.Date.Key()).Msg("event created")
	return event, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id schedule.EventID, patch EventPatch) (schedule.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return schedule.Event{}, err
	}
	existing, ok := buckets.Find(id)
	if !ok {
		return schedule.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return schedule.Event{}, err
	}

	in := EventInput{
		Date:            existing.Date.Key(),
		Time:            existing.Time,
		Text:            existing.Text,
		CalendarID:      existing.CalendarID,
		Recurrence:      string(existing.Recurrence),
		ReminderMinutes: existing.ReminderMinutes,
	}
	patch.apply(&in)

	event, err := buildEvent(id, in, calendars)
	if err != nil {
		return schedule.Event{}, err
	}
	if err := s.store.SaveEvents(ctx, buckets.Replace(event)); err != nil {
		return schedule.Event{}, err
	}

	s.logger.Info().Str("event_id", string(id)).Msg("event updated")
	return event, nil
}

// MoveEvent changes only the anchor date.
func (s *Service) MoveEvent(ctx context.Context, id schedule.EventID, date schedule.Date) (schedule.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return schedule.Event{}, err
	}
	event, ok := buckets.Find(id)
	if !ok {
		return schedule.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if date.IsZero() {
		return schedule.Event{}, ErrInvalidDate
	}

	event.Date = date
	if err := s.store.SaveEvents(ctx, buckets.Replace(event)); err != nil {
		return schedule.Event{}, err
	}

	s.logger.Info().Str("event_id", string(id)).Str("date", date.Key()).Msg("event moved")
	return event, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id schedule.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return err
	}
	if _, ok := buckets.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err := s.store.SaveEvents(ctx, buckets.Without(id)); err != nil {
		return err
	}

	s.logger.Info().Str("event_id", string(id)).Msg("event deleted")
	return nil
}

// ImportEvents stores already-parsed events. Events pointing at unknown
// calendars land in fallbackCalendar. An id that already exists updates that
// event, so importing the same file twice is idempotent. Repeats of an id
// within events are skipped.
func (s *Service) ImportEvents(ctx context.Context, events []schedule.Event, fallbackCalendar string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return 0, err
	}
	if fallbackCalendar == "" && len(calendars) > 0 {
		fallbackCalendar = calendars[0].ID
	}
	if !hasCalendar(calendars, fallbackCalendar) {
		return 0, fmt.Errorf("%w: %s", ErrCalendarNotFound, fallbackCalendar)
	}

	buckets, err := s.store.LoadEvents(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	batch := make(map[schedule.EventID]struct{}, len(events))
	for _, event := range events {
		if event.ID != "" {
			if _, dup := batch[event.ID]; dup {
				s.logger.Warn().Str("event_id", string(event.ID)).Msg("skipping duplicate id in import")
				continue
			}
			batch[event.ID] = struct{}{}
		}
		if event.Date.IsZero() {
			s.logger.Warn().Str("event_id", string(event.ID)).Msg("skipping imported event without date")
			continue
		}
		if _, err := schedule.ParseTimeOfDay(event.Time); err != nil {
			event.Time = DefaultEventTime
		}
		if event.ReminderMinutes < 0 {
			event.ReminderMinutes = 0
		}
		if !hasCalendar(calendars, event.CalendarID) {
			event.CalendarID = fallbackCalendar
		}
		if _, err := schedule.ParseRecurrence(string(event.Recurrence)); err != nil || event.Recurrence == "" {
			event.Recurrence = schedule.RecurrenceNone
		}
		if event.ID == "" {
			event.ID = schedule.EventID(s.newID())
		}
		event.Text = truncateText(event.Text)

		buckets = buckets.Replace(event)
		imported++
	}

	if imported == 0 {
		return 0, nil
	}
	if err := s.store.SaveEvents(ctx, buckets); err != nil {
		return 0, err
	}

	s.logger.Info().Int("count", imported).Msg("events imported")
	return imported, nil
}

func (p EventPatch) apply(in *EventInput) {
	if p.Date != nil {
		in.Date = *p.Date
	}
	if p.Time != nil {
		in.Time = *p.Time
	}
	if p.Text != nil {
		in.Text = *p.Text
	}
	if p.CalendarID != nil {
		in.CalendarID = *p.CalendarID
	}
	if p.Recurrence != nil {
		in.Recurrence = *p.Recurrence
	}
	if p.ReminderMinutes != nil {
		in.ReminderMinutes = *p.ReminderMinutes
	}
}

func buildEvent(id schedule.EventID, in EventInput, calendars []schedule.Calendar) (schedule.Event, error) {
	date, err := schedule.ParseDate(in.Date)
	if err != nil {
		return schedule.Event{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	tod, err := schedule.ParseTimeOfDay(in.Time)
	if err != nil {
		return schedule.Event{}, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	rule, err := schedule.ParseRecurrence(in.Recurrence)
	if err != nil {
		return schedule.Event{}, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	if in.ReminderMinutes < 0 {
		return schedule.Event{}, ErrNegativeReminder
	}
	if !hasCalendar(calendars, in.CalendarID) {
		return schedule.Event{}, fmt.Errorf("%w: %q", ErrCalendarNotFound, in.CalendarID)
	}

	return schedule.Event{
		ID:              id,
		Date:            date,
		Time:            tod.String(),
		Text:            truncateText(in.Text),
		CalendarID:      in.CalendarID,
		Recurrence:      rule,
		ReminderMinutes: in.ReminderMinutes,
	}, nil
}
