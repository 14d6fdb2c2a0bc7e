package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

// backend is a flat key-value blob store. get returns errKeyNotFound for
// keys that were never written.
type backend interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, value []byte) error
	close() error
}

// KV implements Store over any backend. Malformed records are logged and
// replaced by empty data so a corrupt file never blocks startup.
type KV struct {
	backend backend
	logger  zerolog.Logger
	indent  bool
}

func (s *KV) LoadEvents(ctx context.Context) (schedule.EventBuckets, error) {
	raw, err := s.backend.get(ctx, EventsKey)
	if errors.Is(err, errKeyNotFound) {
		return schedule.EventBuckets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	var buckets map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &buckets); err != nil {
		s.logger.Warn().Err(err).Str("key", EventsKey).Msg("stored events are malformed; starting empty")
		return schedule.EventBuckets{}, nil
	}

	out := make(schedule.EventBuckets, len(buckets))
	for key, records := range buckets {
		for _, record := range records {
			var event schedule.Event
			if err := json.Unmarshal(record, &event); err != nil {
				s.logger.Warn().Err(err).Str("bucket", key).Msg("skipping malformed event")
				continue
			}
			if event.Recurrence == "" {
				event.Recurrence = schedule.RecurrenceNone
			}
			out[key] = append(out[key], event)
		}
	}
	return out, nil
}

func (s *KV) SaveEvents(ctx context.Context, events schedule.EventBuckets) error {
	clean := make(schedule.EventBuckets, len(events))
	for key, bucket := range events {
		if len(bucket) > 0 {
			clean[key] = bucket
		}
	}

	payload, err := s.marshal(clean)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := s.backend.put(ctx, EventsKey, payload); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

func (s *KV) LoadCalendars(ctx context.Context) ([]schedule.Calendar, error) {
	raw, err := s.backend.get(ctx, CalendarsKey)
	if errors.Is(err, errKeyNotFound) {
		return DefaultCalendars(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load calendars: %w", err)
	}

	var calendars []schedule.Calendar
	if err := json.Unmarshal(raw, &calendars); err != nil {
		s.logger.Warn().Err(err).Str("key", CalendarsKey).Msg("stored calendars are malformed; starting empty")
		return []schedule.Calendar{}, nil
	}
	if calendars == nil {
		calendars = []schedule.Calendar{}
	}
	return calendars, nil
}

func (s *KV) SaveCalendars(ctx context.Context, calendars []schedule.Calendar) error {
	if calendars == nil {
		calendars = []schedule.Calendar{}
	}

	payload, err := s.marshal(calendars)
	if err != nil {
		return fmt.Errorf("marshal calendars: %w", err)
	}
	if err := s.backend.put(ctx, CalendarsKey, payload); err != nil {
		return fmt.Errorf("save calendars: %w", err)
	}
	return nil
}

func (s *KV) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	return s.backend.close()
}

func (s *KV) marshal(value any) ([]byte, error) {
	if !s.indent {
		return json.Marshal(value)
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}
