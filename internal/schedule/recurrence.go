package schedule

// MaxExpandSteps bounds the stepping loop of a single expansion.
const MaxExpandSteps = 500

// Expand returns a copy of ev for every occurrence inside
// [windowStart, windowEnd]. Calendar is left for the caller to resolve.
func Expand(ev Event, windowStart, windowEnd Date) []Occurrence {
	dates := ExpandDates(ev, windowStart, windowEnd)
	if len(dates) == 0 {
		return nil
	}

	occurrences := make([]Occurrence, 0, len(dates))
	for _, date := range dates {
		occurrences = append(occurrences, Occurrence{Event: ev, OccDate: date})
	}
	return occurrences
}

// ExpandDates lists the occurrence dates of ev inside the inclusive window in
// ascending order. Anchors far in the past are fast-forwarded arithmetically
// so the cost depends on the window size, not on the event's age.
func ExpandDates(ev Event, windowStart, windowEnd Date) []Date {
	if windowEnd.Before(windowStart) {
		return nil
	}

	rule := ev.Recurrence.normalized()
	if rule == RecurrenceNone {
		if ev.Date.Before(windowStart) || ev.Date.After(windowEnd) {
			return nil
		}
		return []Date{ev.Date}
	}

	dates := make([]Date, 0, 8)
	step := fastForward(ev.Date, rule, windowStart)
	for i := 0; i < MaxExpandSteps; i++ {
		current := occurrenceAt(ev.Date, rule, step)
		if current.After(windowEnd) {
			break
		}
		if !current.Before(windowStart) {
			dates = append(dates, current)
		}
		step++
	}
	return dates
}

// fastForward returns the index of the last occurrence at or before
// windowStart, or 0 when the anchor is not before it.
func fastForward(anchor Date, rule Recurrence, windowStart Date) int {
	if !anchor.Before(windowStart) {
		return 0
	}

	switch rule {
	case RecurrenceDaily:
		return anchor.DaysUntil(windowStart)
	case RecurrenceWeekly:
		return anchor.DaysUntil(windowStart) / 7
	case RecurrenceMonthly:
		months := anchor.MonthsUntil(windowStart)
		if months > 0 && anchor.AddMonths(months).After(windowStart) {
			months--
		}
		return months
	default:
		return 0
	}
}

// occurrenceAt computes the step-th occurrence from the anchor. Monthly
// occurrences are always derived from the anchor day so a clamp in a short
// month never carries into the following months.
func occurrenceAt(anchor Date, rule Recurrence, step int) Date {
	switch rule {
	case RecurrenceDaily:
		return anchor.AddDays(step)
	case RecurrenceWeekly:
		return anchor.AddDays(7 * step)
	case RecurrenceMonthly:
		return anchor.AddMonths(step)
	default:
		return anchor
	}
}
