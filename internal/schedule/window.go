package schedule

import (
	"fmt"
	"strings"
	"time"
)

type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

func ParseViewMode(raw string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ViewDay:
		return ViewDay, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", raw)
	}
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days is the inclusive length of the window.
func (w Window) Days() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return w.Start.DaysUntil(w.End) + 1
}

// ComputeWindow returns the dates visible for ref in the given mode. Weeks
// start on Sunday. Any mode other than week or month is a single day.
func ComputeWindow(ref Date, mode ViewMode) Window {
	switch mode {
	case ViewMonth:
		return Window{Start: ref.FirstOfMonth(), End: ref.LastOfMonth()}
	case ViewWeek:
		start := ref.AddDays(-int(ref.Weekday()))
		return Window{Start: start, End: start.AddDays(6)}
	default:
		return Window{Start: ref, End: ref}
	}
}

// ShiftReference moves ref by delta periods of the given mode.
func ShiftReference(ref Date, mode ViewMode, delta int) Date {
	switch mode {
	case ViewMonth:
		return ref.AddMonths(delta)
	case ViewWeek:
		return ref.AddDays(7 * delta)
	default:
		return ref.AddDays(delta)
	}
}

// Today is the local calendar date of now.
func Today(now time.Time) Date {
	return DateOf(now)
}
