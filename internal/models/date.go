package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const dateLayout = "2006-01-02"

// DateOf truncates a timestamp to a UTC calendar date.
func DateOf(t time.Time) datatypes.Date {
	return datatypes.Date(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

// WeekStartOf returns the Monday of the week containing t. Week starts are
// always Mondays.
func WeekStartOf(t time.Time) datatypes.Date {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return DateOf(t.AddDate(0, 0, -offset))
}

// CurrentWeekStart returns the Monday of the current week.
func CurrentWeekStart() datatypes.Date {
	return WeekStartOf(time.Now().UTC())
}

// ParseWeekStart parses a YYYY-MM-DD date and normalizes it to the Monday of
// its week.
func ParseWeekStart(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("%w: invalid week date %q", ErrValidation, s)
	}
	return WeekStartOf(t), nil
}

// ParseDate parses a YYYY-MM-DD date without week normalization.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return DateOf(t), nil
}

// AddDays shifts a date by a number of calendar days.
func AddDays(d datatypes.Date, days int) datatypes.Date {
	return DateOf(time.Time(d).AddDate(0, 0, days))
}

// WeekEnd returns the Sunday of the week beginning at weekStart.
func WeekEnd(weekStart datatypes.Date) datatypes.Date {
	return AddDays(weekStart, 6)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(d datatypes.Date) string {
	return time.Time(d).Format(dateLayout)
}

// SameDate reports whether two dates fall on the same calendar day.
func SameDate(a, b datatypes.Date) bool {
	ay, am, ad := time.Time(a).Date()
	by, bm, bd := time.Time(b).Date()
	return ay == by && am == bm && ad == bd
}

// WithinRange reports whether d falls inside [from, to] inclusive.
func WithinRange(d, from, to datatypes.Date) bool {
	t := time.Time(d)
	return !t.Before(time.Time(from)) && !t.After(time.Time(to))
}
