package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

func (s *Service) AddCalendar(ctx context.Context, name, color string) (schedule.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned, err := cleanName(name)
	if err != nil {
		return schedule.Calendar{}, err
	}
	if strings.TrimSpace(color) == "" {
		color = DefaultCalendarColor
	}

	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return schedule.Calendar{}, err
	}

	calendar := schedule.Calendar{
		ID:      "cal-" + s.newID(),
		Name:    cleaned,
		Color:   strings.TrimSpace(color),
		Visible: true,
	}
	updated := append(append([]schedule.Calendar(nil), calendars...), calendar)
	if err := s.store.SaveCalendars(ctx, updated); err != nil {
		return schedule.Calendar{}, err
	}

	s.logger.Info().Str("calendar_id", calendar.ID).Str("name", calendar.Name).Msg("calendar added")
	return calendar, nil
}

func (s *Service) RenameCalendar(ctx context.Context, id, name string) (schedule.Calendar, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return schedule.Calendar{}, err
	}
	return s.updateCalendar(ctx, id, func(c *schedule.Calendar) { c.Name = cleaned })
}

func (s *Service) ToggleCalendar(ctx context.Context, id string) (schedule.Calendar, error) {
	return s.updateCalendar(ctx, id, func(c *schedule.Calendar) { c.Visible = !c.Visible })
}

// SetVisibleCalendars shows exactly the listed calendars and hides the rest.
func (s *Service) SetVisibleCalendars(ctx context.Context, ids []string) ([]schedule.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return nil, err
	}

	visible := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !hasCalendar(calendars, id) {
			return nil, fmt.Errorf("%w: %s", ErrCalendarNotFound, id)
		}
		visible[id] = struct{}{}
	}

	updated := make([]schedule.Calendar, 0, len(calendars))
	for _, calendar := range calendars {
		_, calendar.Visible = visible[calendar.ID]
		updated = append(updated, calendar)
	}
	if err := s.store.SaveCalendars(ctx, updated); err != nil {
		return nil, err
	}

	s.logger.Info().Int("visible", len(visible)).Msg("calendar visibility updated")
	return updated, nil
}

func (s *Service) updateCalendar(ctx context.Context, id string, mutate func(*schedule.Calendar)) (schedule.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	calendars, err := s.store.LoadCalendars(ctx)
	if err != nil {
		return schedule.Calendar{}, err
	}

	updated := append([]schedule.Calendar(nil), calendars...)
	for i := range updated {
		if updated[i].ID != id {
			continue
		}
		mutate(&updated[i])
		if err := s.store.SaveCalendars(ctx, updated); err != nil {
			return schedule.Calendar{}, err
		}
		s.logger.Info().Str("calendar_id", id).Msg("calendar updated")
		return updated[i], nil
	}
	return schedule.Calendar{}, fmt.Errorf("%w: %s", ErrCalendarNotFound, id)
}
