package waybar

import (
	"strings"
	"testing"
	"time"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

func occ(date, clock, text string) schedule.Occurrence {
	d := schedule.MustParseDate(date)
	return schedule.Occurrence{
		Event:    schedule.Event{ID: schedule.EventID(text), Date: d, Time: clock, Text: text, Recurrence: schedule.RecurrenceWeekly, ReminderMinutes: 15},
		OccDate:  d,
		Calendar: schedule.Calendar{Name: "Work"},
	}
}

func TestRender_CountdownToNext(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	out := Render(Status{
		Now:           now,
		LookaheadDays: 7,
		Upcoming:      []schedule.Occurrence{occ("2024-03-05", "09:45", "Standup"), occ("2024-03-06", "14:00", "Review")},
	})

	if out.Text != "45m  Standup" {
		t.Fatalf("unexpected text: %q", out.Text)
	}
	if out.Class != "normal soon" {
		t.Fatalf("unexpected class: %q", out.Class)
	}
	for _, expected := range []string{"Next in 45m: Standup", "Starts: 09:45", "Calendar: Work", "Repeats: weekly", "Wed Mar 6 14:00 — Review"} {
		if !strings.Contains(out.Tooltip, expected) {
			t.Fatalf("tooltip missing %q:\n%s", expected, out.Tooltip)
		}
	}
}

func TestRender_EmptyIsClear(t *testing.T) {
	t.Parallel()

	out := Render(Status{Now: time.Now(), LookaheadDays: 7, Hidden: 1})
	if out.Class != "clear" || out.Text != "—" {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !strings.Contains(out.Tooltip, "No events in the next 7 days") || !strings.Contains(out.Tooltip, "1 hidden calendar(s)") {
		t.Fatalf("unexpected tooltip: %q", out.Tooltip)
	}
}

func TestRender_TruncatesLongTitles(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	out := Render(Status{Now: now, Upcoming: []schedule.Occurrence{occ("2024-03-07", "09:00", strings.Repeat("x", 40))}})
	if !strings.HasSuffix(out.Text, "…") || out.Class != "normal" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	payload, err := Encode(RenderError("store unavailable"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(payload) != `{"text":"!","tooltip":"store unavailable","class":"error"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}
