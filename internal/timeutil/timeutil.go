// Package timeutil holds the timezone-aware wall-clock arithmetic used by slot
// generation and validation. Times of day are minutes since midnight.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock returns the current instant. Tests pass a fixed function.
type Clock func() time.Time

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MinutesPerDay is the length of a wall-clock day.
const MinutesPerDay = 24 * 60

// DayNames maps time.Weekday to its schedule key.
var DayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// LoadLocation resolves an IANA zone name. Unknown or empty names fall back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MinutesSinceMidnight returns the wall-clock minute of t in its own location.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// TimeFromMinutes converts a minute count to a clock value on the zero date.
// Values past 23:59 wrap to the next day's clock value without changing the date.
func TimeFromMinutes(m int) time.Time {
	m = WrapMinutes(m)
	return time.Date(0, 1, 1, m/60, m%60, 0, 0, time.UTC)
}

// WrapMinutes folds m into [0, 1440).
func WrapMinutes(m int) int {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

// Wraps reports whether start+duration crosses midnight.
func Wraps(start, duration int) bool {
	return start+duration > MinutesPerDay
}

// ParseClock parses "HH:MM" into minutes since midnight. "24:00" is accepted as a closing time.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute: %w", err)
	}

	if hour < 0 || hour > 24 || minute < 0 || minute > 59 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return hour*60 + minute, nil
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(m int) string {
	if m == MinutesPerDay {
		return "24:00"
	}
	m = WrapMinutes(m)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// RangesOverlap is the strict half-open overlap test. Touching endpoints do not overlap.
func RangesOverlap(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}

// DateOf returns the civil date of t as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses "YYYY-MM-DD" into a civil date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a civil date as "YYYY-MM-DD".
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// At returns the instant for date and minute in the given zone.
func At(date time.Time, minute int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, minute, 0, 0, loc)
}

// IsInPast reports whether the slot at date+minute in timezone starts earlier
// than now plus the advance notice.
func IsInPast(now time.Time, date time.Time, minute int, timezone string, advanceNoticeHours int) bool {
	loc := LoadLocation(timezone)
	slot := At(date, minute, loc)
	earliest := now.In(loc).Add(time.Duration(advanceNoticeHours) * time.Hour)
	return slot.Before(earliest)
}

// IsWithinHorizon reports whether date is no later than today plus maxDays,
// counting calendar days in timezone. maxDays <= 0 means no limit.
func IsWithinHorizon(now time.Time, date time.Time, timezone string, maxDays int) bool {
	if maxDays <= 0 {
		return true
	}
	today := DateOf(now.In(LoadLocation(timezone)))
	return !DateOf(date).After(today.AddDate(0, 0, maxDays))
}

// Today returns the civil date of now in timezone.
func Today(now time.Time, timezone string) time.Time {
	return DateOf(now.In(LoadLocation(timezone)))
}

// DayOfWeek returns the weekday name of date.
func DayOfWeek(date time.Time) string {
	return DayNames[date.Weekday()]
}

// ParseDayName maps a schedule key back to time.Weekday.
func ParseDayName(name string) (time.Weekday, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range DayNames {
		if n == name || n[:3] == name {
			return time.Weekday(i), true
		}
	}
	return 0, false
}
