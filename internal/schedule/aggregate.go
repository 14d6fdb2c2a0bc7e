package schedule

// Aggregate expands every event whose calendar exists and is visible, and
// returns the occurrences in chronological order. Events referencing a
// missing calendar are skipped.
func Aggregate(events []Event, calendars []Calendar, windowStart, windowEnd Date) []Occurrence {
	byID := make(map[string]Calendar, len(calendars))
	for _, calendar := range calendars {
		if _, exists := byID[calendar.ID]; exists {
			continue
		}
		byID[calendar.ID] = calendar
	}

	occurrences := make([]Occurrence, 0, len(events))
	for _, event := range events {
		calendar, ok := byID[event.CalendarID]
		if !ok || !calendar.Visible {
			continue
		}
		for _, occurrence := range Expand(event, windowStart, windowEnd) {
			occurrence.Calendar = calendar
			occurrences = append(occurrences, occurrence)
		}
	}

	SortOccurrences(occurrences)
	return occurrences
}
