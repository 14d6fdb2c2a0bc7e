package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a naive calendar date with no time zone attached.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate normalizes overflowing values the same way time.Date does,
// so NewDate(2024, 1, 32) is 2024-02-01.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// ParseDate accepts "YYYY-MM-DD" and the unpadded "YYYY-M-D" form.
func ParseDate(raw string) (Date, error) {
	text := strings.TrimSpace(raw)
	if parsed, err := time.Parse(dateLayout, text); err == nil {
		return DateOf(parsed), nil
	}

	parts := strings.Split(text, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("parse date %q: want YYYY-MM-DD", raw)
	}

	values := [3]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
		}
		values[i] = n
	}

	month := time.Month(values[1])
	if month < time.January || month > time.December {
		return Date{}, fmt.Errorf("parse date %q: month out of range", raw)
	}
	if values[2] < 1 || values[2] > DaysIn(values[0], month) {
		return Date{}, fmt.Errorf("parse date %q: day out of range", raw)
	}
	return Date{year: values[0], month: month, day: values[2]}, nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(raw string) Date {
	d, err := ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// DaysIn reports the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) Year() int { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int { return d.day }
func (d Date) IsZero() bool { return d == Date{} }
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

// Key is the persisted "YYYY-MM-DD" form.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func (d Date) String() string {
	return d.Key()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Key()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.year, d.month, d.day+n)
}

// AddMonths moves by n calendar months keeping the day of month, clamped to
// the last day of the target month.
func (d Date) AddMonths(n int) Date {
	total := d.year*12 + int(d.month-1) + n
	year := floorDiv(total, 12)
	month := time.Month(total-year*12) + 1

	day := d.day
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return Date{year: year, month: month, day: day}
}

// DaysUntil is the exact number of days from d to other, negative when
// other is earlier.
func (d Date) DaysUntil(other Date) int {
	return other.dayNumber() - d.dayNumber()
}

// MonthsUntil counts calendar month boundaries from d to other, ignoring days.
func (d Date) MonthsUntil(other Date) int {
	return (other.year-d.year)*12 + int(other.month-d.month)
}

func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return cmpInt(d.year, other.year)
	case d.month != other.month:
		return cmpInt(int(d.month), int(other.month))
	default:
		return cmpInt(d.day, other.day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

func (d Date) FirstOfMonth() Date {
	return Date{year: d.year, month: d.month, day: 1}
}

func (d Date) LastOfMonth() Date {
	return Date{year: d.year, month: d.month, day: DaysIn(d.year, d.month)}
}

// At combines the date with a wall-clock time in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.year, d.month, d.day, tod.Hour, tod.Minute, 0, 0, loc)
}

func (d Date) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// dayNumber is days since 1970-01-01. UTC midnights are exact multiples of
// 86400 seconds, so the division never rounds.
func (d Date) dayNumber() int {
	return int(d.utc().Unix() / 86400)
}

// TimeOfDay is an "HH:MM" wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	text := strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(text, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("parse time %q: want HH:MM", raw)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("parse time %q: hour out of range", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("parse time %q: minute out of range", raw)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
