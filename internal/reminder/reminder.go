package reminder

import (
	"fmt"
	"time"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

// Horizon is how far ahead of now a reminder may be armed.
const Horizon = 24 * time.Hour

// Key identifies one reminder: a single occurrence of a single event.
type Key struct {
	EventID schedule.EventID
	OccDate schedule.Date
}

// Tag is the dedupe tag handed to notification sinks.
func (k Key) Tag() string {
	return fmt.Sprintf("ev-%s-%s", k.EventID, k.OccDate.Key())
}

// Payload is what a sink presents.
type Payload struct {
	Title string `json:"title"`
	Time  string `json:"time"`
}

type Reminder struct {
	Key     Key
	FireAt  time.Time
	Payload Payload
}

// FireTime is the occurrence start minus its reminder offset, in loc.
func FireTime(occ schedule.Occurrence, loc *time.Location) (time.Time, error) {
	start, err := occ.Start(loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("occurrence %s on %s: %w", occ.ID, occ.OccDate, err)
	}
	return start.Add(-time.Duration(occ.ReminderMinutes) * time.Minute), nil
}

// Plan returns one reminder per distinct key whose fire time lies in
// (now, now+Horizon]. Everything else is dropped without error.
func Plan(occurrences []schedule.Occurrence, now time.Time) []Reminder {
	planned := make([]Reminder, 0, len(occurrences))
	seen := make(map[Key]struct{}, len(occurrences))
	for _, occ := range occurrences {
		key := Key{EventID: occ.ID, OccDate: occ.OccDate}
		if _, dup := seen[key]; dup {
			continue
		}

		fireAt, err := FireTime(occ, now.Location())
		if err != nil {
			continue
		}
		lead := fireAt.Sub(now)
		if lead <= 0 || lead > Horizon {
			continue
		}

		seen[key] = struct{}{}
		planned = append(planned, Reminder{
			Key:     key,
			FireAt:  fireAt,
			Payload: Payload{Title: occ.Text, Time: occ.Time},
		})
	}
	return planned
}

// CandidateWindow is the smallest date window that contains every occurrence
// whose reminder could still fire within the horizon.
func CandidateWindow(now time.Time, events []schedule.Event) schedule.Window {
	maxLead := 0
	for _, ev := range events {
		if ev.ReminderMinutes > maxLead {
			maxLead = ev.ReminderMinutes
		}
	}

	end := now.Add(Horizon + time.Duration(maxLead)*time.Minute)
	return schedule.Window{Start: schedule.DateOf(now), End: schedule.DateOf(end)}
}
