package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday matches a weekday name case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	trimmed := strings.TrimSpace(s)
	for _, day := range weekdayOrder {
		if strings.EqualFold(trimmed, string(day)) {
			return day, nil
		}
	}
	return "", fmt.Errorf("%w: unknown weekday %q", ErrValidation, s)
}

// Offset returns the day's distance from Monday, used to date a visit inside
// its scheduled week.
func (d Weekday) Offset() int {
	for i, day := range weekdayOrder {
		if day == d {
			return i
		}
	}
	return 0
}

// Weekdays is an ordered set of attendance days. Persisted as a comma-joined
// text column, parsed once on load and serialized once on save.
type Weekdays []Weekday

func (w Weekdays) GormDataType() string { return "text" }

func (w Weekdays) Value() (driver.Value, error) {
	if len(w) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(w))
	for _, day := range w {
		parts = append(parts, string(day))
	}
	return strings.Join(parts, ","), nil
}

func (w *Weekdays) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Weekdays", value)
	}

	parsed, err := ParseWeekdays(raw)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWeekdays parses a comma-joined day list, dropping blanks.
func ParseWeekdays(raw string) (Weekdays, error) {
	var days Weekdays
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		day, err := ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// Dedupe removes repeated days while preserving first-seen order, so a client
// recorded with "Monday,Monday" expands to a single Monday assignment.
func (w Weekdays) Dedupe() Weekdays {
	seen := make(map[Weekday]bool, len(w))
	var out Weekdays
	for _, day := range w {
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out
}

func (w Weekdays) Contains(day Weekday) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}
