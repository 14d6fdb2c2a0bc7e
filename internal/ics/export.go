package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

const (
	ProductID = "-//rbright//waybar-calendar//EN"

	propCalendarID   = "X-WAYBAR-CALENDAR-ID"
	propCalendarName = "X-WR-CALNAME"

	floatingLayout = "20060102T150405"

	clampFromDay = 28
)

var ruleFrequencies = map[schedule.Recurrence]rrule.Frequency{
	schedule.RecurrenceDaily:   rrule.DAILY,
	schedule.RecurrenceWeekly:  rrule.WEEKLY,
	schedule.RecurrenceMonthly: rrule.MONTHLY,
}

// Export writes events as a VCALENDAR. Start times are floating local
// times, recurrences become RRULE and reminder offsets become VALARMs.
// Events whose calendar is missing are skipped.
func Export(w io.Writer, snapshot schedule.Snapshot, now time.Time) (int, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(propCalendarName, "waybar-calendar")

	exported := 0
	for _, event := range snapshot.Events {
		calendar, ok := snapshot.Calendar(event.CalendarID)
		if !ok {
			continue
		}

		vevent, err := exportEvent(event, calendar, now)
		if err != nil {
			return 0, err
		}
		cal.Children = append(cal.Children, vevent.Component)
		exported++
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return 0, fmt.Errorf("encode calendar: %w", err)
	}
	return exported, nil
}

func exportEvent(event schedule.Event, calendar schedule.Calendar, now time.Time) (*ical.Event, error) {
	tod, err := schedule.ParseTimeOfDay(event.Time)
	if err != nil {
		return nil, fmt.Errorf("export event %s: %w", event.ID, err)
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, string(event.ID))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	vevent.Props.SetText(ical.PropSummary, event.Text)
	vevent.Props.SetText(ical.PropCategories, calendar.Name)
	vevent.Props.SetText(propCalendarID, calendar.ID)

	start := ical.NewProp(ical.PropDateTimeStart)
	start.Value = event.Date.At(tod, time.UTC).Format(floatingLayout)
	vevent.Props.Set(start)

	if freq, ok := ruleFrequencies[event.Recurrence]; ok {
		option := exportRule(freq, event.Date)
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = option.RRuleString()
		vevent.Props.Set(rule)
	}

	if event.ReminderMinutes > 0 {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, event.Text)

		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = formatTrigger(event.ReminderMinutes)
		alarm.Props.Set(trigger)

		vevent.Children = append(vevent.Children, alarm)
	}

	return vevent, nil
}

// exportRule builds the RRULE for an anchor. Monthly anchors past the 28th
// pick the last existing day among 28..anchor day, so short months clamp
// instead of being skipped.
func exportRule(freq rrule.Frequency, anchor schedule.Date) rrule.ROption {
	option := rrule.ROption{Freq: freq}
	if freq != rrule.MONTHLY || anchor.Day() <= clampFromDay {
		return option
	}
	for day := clampFromDay; day <= anchor.Day(); day++ {
		option.Bymonthday = append(option.Bymonthday, day)
	}
	option.Bysetpos = []int{-1}
	return option
}

// formatTrigger writes a negative offset such as -PT15M or -PT1H30M.
func formatTrigger(minutes int) string {
	var b strings.Builder
	b.WriteString("-PT")
	if hours := minutes / 60; hours > 0 {
		_, _ = fmt.Fprintf(&b, "%dH", hours)
	}
	if rest := minutes % 60; rest > 0 || minutes == 0 {
		_, _ = fmt.Fprintf(&b, "%dM", rest)
	}
	return b.String()
}
