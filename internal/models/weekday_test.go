package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday_CaseInsensitive(t *testing.T) {
	day, err := ParseWeekday("  tuesday ")
	require.NoError(t, err)
	assert.Equal(t, Tuesday, day)

	_, err = ParseWeekday("Someday")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWeekday_Offset(t *testing.T) {
	assert.Equal(t, 0, Monday.Offset())
	assert.Equal(t, 4, Friday.Offset())
	assert.Equal(t, 6, Sunday.Offset())
}

func TestWeekdays_RoundTrip(t *testing.T) {
	days := Weekdays{Monday, Thursday}

	value, err := days.Value()
	require.NoError(t, err)
	assert.Equal(t, "Monday,Thursday", value)

	var scanned Weekdays
	require.NoError(t, scanned.Scan("Monday,Thursday"))
	assert.Equal(t, days, scanned)
}

func TestWeekdays_ScanTolerance(t *testing.T) {
	var days Weekdays
	require.NoError(t, days.Scan("monday, ,friday"))
	assert.Equal(t, Weekdays{Monday, Friday}, days)

	require.NoError(t, days.Scan(nil))
	assert.Nil(t, days)

	assert.Error(t, days.Scan("Monday,Nonsense"))
}

func TestWeekdays_Dedupe(t *testing.T) {
	days := Weekdays{Monday, Friday, Monday, Friday}
	assert.Equal(t, Weekdays{Monday, Friday}, days.Dedupe())
}

func TestWeekStartOf_NormalizesToMonday(t *testing.T) {
	// 2026-08-26 is a Wednesday
	wednesday := time.Date(2026, 8, 26, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-24", FormatDate(WeekStartOf(wednesday)))

	// Sunday belongs to the week that started six days earlier
	sunday := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-24", FormatDate(WeekStartOf(sunday)))

	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-24", FormatDate(WeekStartOf(monday)))
}

func TestParseWeekStart(t *testing.T) {
	week, err := ParseWeekStart("2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-24", FormatDate(week))
	assert.Equal(t, "2026-08-30", FormatDate(WeekEnd(week)))

	_, err = ParseWeekStart("28-08-2026")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWithinRange(t *testing.T) {
	from, _ := ParseDate("2026-08-24")
	to, _ := ParseDate("2026-08-30")
	inside, _ := ParseDate("2026-08-27")
	outside, _ := ParseDate("2026-09-01")

	assert.True(t, WithinRange(inside, from, to))
	assert.True(t, WithinRange(from, from, to))
	assert.True(t, WithinRange(to, from, to))
	assert.False(t, WithinRange(outside, from, to))
}
