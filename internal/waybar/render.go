package waybar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

// SoonThreshold marks the next occurrence with the "soon" class.
const SoonThreshold = time.Hour

type Output struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

// Status is everything the bar module shows for one refresh.
type Status struct {
	Now           time.Time
	LookaheadDays int
	Upcoming      []schedule.Occurrence
	Hidden        int
}

// Render shows a countdown to the first upcoming occurrence, or a dash when
// the lookahead window is empty.
func Render(status Status) Output {
	if len(status.Upcoming) == 0 {
		return Output{
			Text:    "—",
			Tooltip: tooltip(status),
			Class:   "clear",
		}
	}

	next := status.Upcoming[0]
	classes := []string{"normal"}
	if start, err := next.Start(status.Now.Location()); err == nil && start.Sub(status.Now) <= SoonThreshold {
		classes = append(classes, "soon")
	}

	return Output{
		Text:    fmt.Sprintf("%s  %s", schedule.CountdownText(status.Now, next), truncate(next.Text, 24)),
		Tooltip: tooltip(status),
		Class:   strings.Join(classes, " "),
	}
}

func RenderError(message string) Output {
	return Output{
		Text:    "!",
		Tooltip: strings.TrimSpace(message),
		Class:   "error",
	}
}

func Encode(output Output) ([]byte, error) {
	payload, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("marshal waybar output: %w", err)
	}
	return payload, nil
}

func tooltip(status Status) string {
	var b strings.Builder

	if len(status.Upcoming) == 0 {
		_, _ = fmt.Fprintf(&b, "No events in the next %d days\n", status.LookaheadDays)
	} else {
		next := status.Upcoming[0]
		_, _ = fmt.Fprintf(&b, "Next in %s: %s\n", schedule.CountdownText(status.Now, next), fallback(next.Text))
		_, _ = fmt.Fprintf(&b, "Starts: %s\n", startLabel(status.Now, next))
		if strings.TrimSpace(next.Calendar.Name) != "" {
			_, _ = fmt.Fprintf(&b, "Calendar: %s\n", next.Calendar.Name)
		}
		if next.Recurrence != "" && next.Recurrence != schedule.RecurrenceNone {
			_, _ = fmt.Fprintf(&b, "Repeats: %s\n", next.Recurrence)
		}
		if next.ReminderMinutes > 0 {
			_, _ = fmt.Fprintf(&b, "Reminder: %d min before\n", next.ReminderMinutes)
		}

		if len(status.Upcoming) > 1 {
			_, _ = fmt.Fprint(&b, "\nUpcoming:\n")
			for _, item := range status.Upcoming[1:] {
				_, _ = fmt.Fprintf(&b, "%s — %s\n", startLabel(status.Now, item), fallback(item.Text))
			}
		}
	}

	if status.Hidden > 0 {
		_, _ = fmt.Fprintf(&b, "\n%d hidden calendar(s)\n", status.Hidden)
	}
	_, _ = fmt.Fprint(&b, "Click to open dropdown")
	return strings.TrimSpace(b.String())
}

func startLabel(now time.Time, item schedule.Occurrence) string {
	start, err := item.Start(now.Location())
	if err != nil {
		return item.OccDate.Key()
	}
	if item.OccDate == schedule.DateOf(now) {
		return start.Format("15:04")
	}
	return start.Format("Mon Jan 2 15:04")
}

func fallback(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}

func truncate(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max-1]) + "…"
}
