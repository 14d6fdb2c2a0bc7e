package schedule

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SortOccurrences orders by occurrence date, then by the "HH:MM" time string.
// Equal keys keep their input order.
func SortOccurrences(items []Occurrence) {
	sort.SliceStable(items, func(i, j int) bool {
		if cmp := items[i].OccDate.Compare(items[j].OccDate); cmp != 0 {
			return cmp < 0
		}
		return items[i].Time < items[j].Time
	})
}

// Upcoming returns up to maxItems occurrences starting at or after now.
// Occurrences with an unparsable time are left out.
func Upcoming(items []Occurrence, now time.Time, maxItems int) []Occurrence {
	if len(items) == 0 || maxItems <= 0 {
		return nil
	}

	out := make([]Occurrence, 0, len(items))
	for _, item := range items {
		start, err := item.Start(now.Location())
		if err != nil || start.Before(now) {
			continue
		}
		out = append(out, item)
	}

	SortOccurrences(out)
	if len(out) > maxItems {
		out = out[:maxItems]
	}
	return out
}

func NextOccurrence(items []Occurrence, now time.Time) (Occurrence, bool) {
	upcoming := Upcoming(items, now, 1)
	if len(upcoming) == 0 {
		return Occurrence{}, false
	}
	return upcoming[0], true
}

func CountdownText(now time.Time, item Occurrence) string {
	start, err := item.Start(now.Location())
	if err != nil || !start.After(now) {
		return "now"
	}
	return HumanizeDuration(start.Sub(now))
}

func HumanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "now"
	}

	minutes := int(math.Ceil(d.Minutes()))
	days := minutes / (24 * 60)
	remaining := minutes % (24 * 60)
	hours := remaining / 60
	mins := remaining % 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, strconv.Itoa(days)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+"h")
	}
	if mins > 0 {
		parts = append(parts, strconv.Itoa(mins)+"m")
	}
	if len(parts) == 0 {
		parts = append(parts, "0m")
	}
	return strings.Join(parts, " ")
}
