package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventID_AcceptsNumbersAndStrings(t *testing.T) {
	t.Parallel()

	var events []Event
	payload := `[{"id":1700000000123,"date":"2024-03-05","time":"09:00","text":"a","calendarId":"cal-work","recurrence":"none","reminderMinutes":15},
		{"id":"cal-import-1","date":"2024-03-06","time":"10:00","text":"b","calendarId":"cal-work","recurrence":"weekly","reminderMinutes":0}]`
	require.NoError(t, json.Unmarshal([]byte(payload), &events))
	require.Len(t, events, 2)
	assert.Equal(t, EventID("1700000000123"), events[0].ID)
	assert.Equal(t, EventID("cal-import-1"), events[1].ID)

	encoded, err := json.Marshal(events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", string(encoded))

	encoded, err = json.Marshal(EventID("007"))
	require.NoError(t, err)
	assert.Equal(t, `"007"`, string(encoded))
}

func TestEventBuckets_ReplaceMovesAcrossDates(t *testing.T) {
	t.Parallel()

	buckets := EventBuckets{
		"2024-03-05": {
			{ID: "1", Date: MustParseDate("2024-03-05"), Text: "first"},
			{ID: "2", Date: MustParseDate("2024-03-05"), Text: "second"},
		},
	}

	edited := buckets.Replace(Event{ID: "1", Date: MustParseDate("2024-03-05"), Text: "renamed"})
	assert.Equal(t, "renamed", edited["2024-03-05"][0].Text)
	assert.Equal(t, "first", buckets["2024-03-05"][0].Text)

	moved := edited.Replace(Event{ID: "2", Date: MustParseDate("2024-03-07"), Text: "second"})
	require.Len(t, moved["2024-03-05"], 1)
	require.Len(t, moved["2024-03-07"], 1)

	removed := moved.Without("1")
	_, ok := removed["2024-03-05"]
	assert.False(t, ok)
	assert.Len(t, removed.Flatten(), 1)
}

func TestParseRecurrence(t *testing.T) {
	t.Parallel()

	got, err := ParseRecurrence("")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceNone, got)

	got, err = ParseRecurrence("Monthly")
	require.NoError(t, err)
	assert.Equal(t, RecurrenceMonthly, got)

	_, err = ParseRecurrence("yearly")
	assert.Error(t, err)
}
