package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

func occurrence(id, date, clock string, reminderMinutes int) schedule.Occurrence {
	d := schedule.MustParseDate(date)
	return schedule.Occurrence{
		Event: schedule.Event{
			ID:              schedule.EventID(id),
			Date:            d,
			Time:            clock,
			Text:            "Event " + id,
			CalendarID:      "cal-personal",
			ReminderMinutes: reminderMinutes,
		},
		OccDate: d,
	}
}

func TestPlan_GatesOnHorizon(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		occ  schedule.Occurrence
		want bool
	}{
		{name: "fires exactly now", occ: occurrence("a", "2024-03-05", "12:15", 15), want: false},
		{name: "fired in the past", occ: occurrence("b", "2024-03-05", "11:00", 0), want: false},
		{name: "one minute ahead", occ: occurrence("c", "2024-03-05", "12:16", 15), want: true},
		{name: "exactly at horizon", occ: occurrence("d", "2024-03-06", "12:00", 0), want: true},
		{name: "just past horizon", occ: occurrence("e", "2024-03-06", "12:01", 0), want: false},
		{name: "offset pulls into horizon", occ: occurrence("f", "2024-03-06", "13:00", 90), want: true},
		{name: "bad time", occ: occurrence("g", "2024-03-05", "soon", 0), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			plan := Plan([]schedule.Occurrence{tc.occ}, now)
			assert.Equal(t, tc.want, len(plan) == 1)
		})
	}
}

func TestPlan_BuildsPayloadAndTag(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	occ := occurrence("1700000000123", "2024-03-05", "14:30", 10)

	plan := Plan([]schedule.Occurrence{occ, occ}, now)
	require.Len(t, plan, 1)
	assert.Equal(t, Payload{Title: "Event 1700000000123", Time: "14:30"}, plan[0].Payload)
	assert.Equal(t, "ev-1700000000123-2024-03-05", plan[0].Key.Tag())
	assert.Equal(t, time.Date(2024, 3, 5, 14, 20, 0, 0, time.UTC), plan[0].FireAt)
}

func TestCandidateWindow_CoversLongestOffset(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	events := []schedule.Event{{ReminderMinutes: 15}, {ReminderMinutes: 24 * 60}}

	window := CandidateWindow(now, events)
	assert.Equal(t, "2024-03-05", window.Start.Key())
	assert.Equal(t, "2024-03-07", window.End.Key())
}
