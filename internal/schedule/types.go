package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxTextLength bounds Event.Text, counted in runes.
const MaxTextLength = 200

type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// ParseRecurrence maps user input to a rule. An empty string means none.
func ParseRecurrence(raw string) (Recurrence, error) {
	switch Recurrence(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RecurrenceNone:
		return RecurrenceNone, nil
	case RecurrenceDaily:
		return RecurrenceDaily, nil
	case RecurrenceWeekly:
		return RecurrenceWeekly, nil
	case RecurrenceMonthly:
		return RecurrenceMonthly, nil
	default:
		return "", fmt.Errorf("unknown recurrence %q", raw)
	}
}

// normalized treats missing and unrecognized stored rules as none.
func (r Recurrence) normalized() Recurrence {
	parsed, err := ParseRecurrence(string(r))
	if err != nil {
		return RecurrenceNone
	}
	return parsed
}

type Calendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

// EventID accepts both JSON numbers and strings. Purely numeric ids are
// written back as numbers.
type EventID string

func (id EventID) MarshalJSON() ([]byte, error) {
	if isNumeric(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *EventID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return fmt.Errorf("decode event id: %w", err)
		}
		*id = EventID(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("decode event id: %w", err)
	}
	*id = EventID(number.String())
	return nil
}

func isNumeric(value string) bool {
	if value == "" || (len(value) > 1 && value[0] == '0') {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Event is a stored event definition. Date is the anchor: the first
// occurrence and the reference point for recurrence.
type Event struct {
	ID              EventID    `json:"id"`
	Date            Date       `json:"date"`
	Time            string     `json:"time"`
	Text            string     `json:"text"`
	CalendarID      string     `json:"calendarId"`
	Recurrence      Recurrence `json:"recurrence"`
	ReminderMinutes int        `json:"reminderMinutes"`
}

// Occurrence is one concrete instance of an Event. It is derived on every
// recomputation and never persisted.
type Occurrence struct {
	Event
	OccDate  Date     `json:"occDate"`
	Calendar Calendar `json:"calendar"`
}

// Start is the wall-clock start of the occurrence in loc.
func (o Occurrence) Start(loc *time.Location) (time.Time, error) {
	tod, err := ParseTimeOfDay(o.Time)
	if err != nil {
		return time.Time{}, err
	}
	return o.OccDate.At(tod, loc), nil
}

// EventBuckets is the persisted layout: anchor date key to the events
// anchored on that day.
type EventBuckets map[string][]Event

// Flatten lists every event ordered by bucket key, keeping the order inside
// each bucket.
func (b EventBuckets) Flatten() []Event {
	keys := make([]string, 0, len(b))
	for key := range b {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	events := make([]Event, 0, len(b))
	for _, key := range keys {
		events = append(events, b[key]...)
	}
	return events
}

func (b EventBuckets) Find(id EventID) (Event, bool) {
	for _, events := range b {
		for _, event := range events {
			if event.ID == id {
				return event, true
			}
		}
	}
	return Event{}, false
}

func (b EventBuckets) Clone() EventBuckets {
	clone := make(EventBuckets, len(b))
	for key, events := range b {
		clone[key] = append([]Event(nil), events...)
	}
	return clone
}

// Without returns a copy with id removed from every bucket. Emptied buckets
// are dropped.
func (b EventBuckets) Without(id EventID) EventBuckets {
	out := make(EventBuckets, len(b))
	for key, events := range b {
		kept := make([]Event, 0, len(events))
		for _, event := range events {
			if event.ID != id {
				kept = append(kept, event)
			}
		}
		if len(kept) > 0 {
			out[key] = kept
		}
	}
	return out
}

// Replace updates an existing event in place when it keeps its anchor date,
// and moves it to the end of its new bucket otherwise. Unknown ids are
// appended.
func (b EventBuckets) Replace(event Event) EventBuckets {
	out := b.Clone()
	key := event.Date.Key()
	for existingKey, events := range out {
		for i := range events {
			if events[i].ID != event.ID {
				continue
			}
			if existingKey == key {
				events[i] = event
				return out
			}
			out = out.Without(event.ID)
			out[key] = append(out[key], event)
			return out
		}
	}
	out[key] = append(out[key], event)
	return out
}

// Snapshot is an immutable view of everything the engine reads.
type Snapshot struct {
	Calendars []Calendar
	Events    []Event
}

func (s Snapshot) Aggregate(window Window) []Occurrence {
	return Aggregate(s.Events, s.Calendars, window.Start, window.End)
}

func (s Snapshot) Calendar(id string) (Calendar, bool) {
	for _, calendar := range s.Calendars {
		if calendar.ID == id {
			return calendar, true
		}
	}
	return Calendar{}, false
}
