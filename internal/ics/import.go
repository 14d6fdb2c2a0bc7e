package ics

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	goics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

const (
	allDayTime       = "09:00"
	propRecurrenceID = "RECURRENCE-ID"
)

// maxTriggerMinutes bounds alarm offsets to one year.
const maxTriggerMinutes = 366 * 24 * 60

// ImportResult holds parsed events plus notes about anything simplified.
type ImportResult struct {
	Events   []schedule.Event
	Skipped  int
	Warnings []string
}

// Import parses VEVENTs into event definitions. Times are converted to loc.
// Rules other than a plain daily, weekly or monthly frequency are reduced to
// their frequency and reported in Warnings. Instance overrides (RECURRENCE-ID)
// and repeated UIDs are skipped.
func Import(r io.Reader, loc *time.Location) (ImportResult, error) {
	if loc == nil {
		loc = time.Local
	}

	parsed, err := goics.ParseCalendar(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("parse ics: %w", err)
	}

	var result ImportResult
	seen := make(map[schedule.EventID]struct{})
	for _, vevent := range parsed.Events() {
		event, warnings, err := mapEvent(vevent, loc)
		if err != nil {
			result.Skipped++
			result.Warnings = append(result.Warnings, err.Error())
			continue
		}
		if event.ID != "" {
			if _, dup := seen[event.ID]; dup {
				result.Skipped++
				result.Warnings = append(result.Warnings, fmt.Sprintf("event %q: duplicate UID skipped", event.ID))
				continue
			}
			seen[event.ID] = struct{}{}
		}
		result.Events = append(result.Events, event)
		result.Warnings = append(result.Warnings, warnings...)
	}
	return result, nil
}

func mapEvent(vevent *goics.VEvent, loc *time.Location) (schedule.Event, []string, error) {
	uid := strings.TrimSpace(propertyValue(vevent.GetProperty(goics.ComponentPropertyUniqueId)))

	// Overrides of single instances share the series UID.
	if override := vevent.GetProperty(goics.ComponentProperty(propRecurrenceID)); override != nil {
		return schedule.Event{}, nil, fmt.Errorf("event %q: instance override %s not supported", uid, strings.TrimSpace(override.Value))
	}

	startProp := vevent.GetProperty(goics.ComponentPropertyDtStart)
	if startProp == nil {
		return schedule.Event{}, nil, fmt.Errorf("event %q: missing DTSTART", uid)
	}
	start, err := parseICSTimeValue(startProp.Value, startProp.ICalParameters, loc)
	if err != nil {
		return schedule.Event{}, nil, fmt.Errorf("event %q: %w", uid, err)
	}
	start = start.In(loc)

	clock := start.Format("15:04")
	if isAllDay(startProp) {
		clock = allDayTime
	}

	event := schedule.Event{
		ID:         schedule.EventID(uid),
		Date:       schedule.DateOf(start),
		Time:       clock,
		Text:       sanitize(propertyValue(vevent.GetProperty(goics.ComponentPropertySummary))),
		CalendarID: strings.TrimSpace(propertyValue(vevent.GetProperty(goics.ComponentProperty(propCalendarID)))),
		Recurrence: schedule.RecurrenceNone,
	}

	var warnings []string
	if raw := strings.TrimSpace(propertyValue(vevent.GetProperty(goics.ComponentPropertyRrule))); raw != "" {
		rule, note := mapRule(raw)
		event.Recurrence = rule
		if note != "" {
			warnings = append(warnings, fmt.Sprintf("event %q: %s", uid, note))
		}
	}

	for _, alarm := range vevent.Alarms() {
		trigger := alarm.GetProperty(goics.ComponentPropertyTrigger)
		if trigger == nil {
			continue
		}
		if related, ok := trigger.ICalParameters["RELATED"]; ok && len(related) > 0 && strings.EqualFold(related[0], "END") {
			continue
		}
		minutes, err := parseTrigger(trigger.Value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("event %q: %v", uid, err))
			continue
		}
		event.ReminderMinutes = minutes
		break
	}

	return event, warnings, nil
}

func mapRule(raw string) (schedule.Recurrence, string) {
	option, err := rrule.StrToROption(raw)
	if err != nil {
		return schedule.RecurrenceNone, fmt.Sprintf("unsupported RRULE %q: %v", raw, err)
	}

	var rule schedule.Recurrence
	switch option.Freq {
	case rrule.DAILY:
		rule = schedule.RecurrenceDaily
	case rrule.WEEKLY:
		rule = schedule.RecurrenceWeekly
	case rrule.MONTHLY:
		rule = schedule.RecurrenceMonthly
	default:
		return schedule.RecurrenceNone, fmt.Sprintf("unsupported frequency in RRULE %q", raw)
	}

	simple := option.Interval <= 1 && option.Count == 0 && option.Until.IsZero() &&
		len(option.Byweekday) == 0 && len(option.Bymonth) == 0 &&
		((len(option.Bymonthday) == 0 && len(option.Bysetpos) == 0) ||
			(rule == schedule.RecurrenceMonthly && isClampedMonthly(option)))
	if !simple {
		return rule, fmt.Sprintf("RRULE %q reduced to %s", raw, rule)
	}
	return rule, ""
}

// isClampedMonthly matches BYMONTHDAY=28,...,N;BYSETPOS=-1 as written by
// Export for anchors on the 29th to the 31st.
func isClampedMonthly(option *rrule.ROption) bool {
	if len(option.Bysetpos) != 1 || option.Bysetpos[0] != -1 {
		return false
	}
	days := option.Bymonthday
	if len(days) < 2 || len(days) > 4 {
		return false
	}
	for i, day := range days {
		if day != clampFromDay+i {
			return false
		}
	}
	return true
}

// parseTrigger reads a negative relative duration such as -PT15M, -PT1H or
// -P1D and returns the lead time in minutes. A zero offset is allowed.
func parseTrigger(raw string) (int, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	negative := strings.HasPrefix(value, "-")
	value = strings.TrimLeft(value, "+-")
	if !strings.HasPrefix(value, "P") {
		return 0, fmt.Errorf("unsupported TRIGGER %q", raw)
	}
	value = value[1:]

	total := 0
	inTime := false
	number := ""
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			number += string(r)
		case r == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(number)
			if err != nil || n > maxTriggerMinutes*60 {
				return 0, fmt.Errorf("unsupported TRIGGER %q", raw)
			}
			number = ""
			switch {
			case r == 'W' && !inTime:
				total += n * 7 * 24 * 60
			case r == 'D' && !inTime:
				total += n * 24 * 60
			case r == 'H' && inTime:
				total += n * 60
			case r == 'M' && inTime:
				total += n
			case r == 'S' && inTime:
				total += n / 60
			default:
				return 0, fmt.Errorf("unsupported TRIGGER %q", raw)
			}
			if total > maxTriggerMinutes {
				return 0, fmt.Errorf("TRIGGER %q exceeds one year", raw)
			}
		}
	}
	if number != "" {
		return 0, fmt.Errorf("unsupported TRIGGER %q", raw)
	}
	if total > 0 && !negative {
		return 0, fmt.Errorf("TRIGGER %q fires after the start", raw)
	}
	return total, nil
}

func parseICSTimeValue(value string, params map[string][]string, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if tzIDs, ok := params["TZID"]; ok && len(tzIDs) > 0 && strings.TrimSpace(tzIDs[0]) != "" {
		if loaded, err := time.LoadLocation(strings.TrimSpace(tzIDs[0])); err == nil {
			loc = loaded
		}
	}

	layouts := []string{
		"20060102T150405Z",
		"20060102T1504Z",
		"20060102T150405",
		"20060102T1504",
		"20060102",
	}
	for _, layout := range layouts {
		if strings.HasSuffix(layout, "Z") {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, nil
			}
			continue
		}
		if parsed, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time value %q", trimmed)
}

func isAllDay(property *goics.IANAProperty) bool {
	if values, ok := property.ICalParameters["VALUE"]; ok {
		for _, value := range values {
			if strings.EqualFold(strings.TrimSpace(value), "DATE") {
				return true
			}
		}
	}
	return len(strings.TrimSpace(property.Value)) == 8
}

func propertyValue(property *goics.IANAProperty) string {
	if property == nil {
		return ""
	}
	return property.Value
}

func sanitize(value string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(value)), " ")
}
