package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock minute offset from local midnight. 1440 (24:00)
// is only valid as the exclusive end of a range.
type TimeOfDay int

const (
	Midnight  TimeOfDay = 0
	EndOfDay  TimeOfDay = 24 * 60
	DateFormat          = "2006-01-02"
)

func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour == 24 && minute == 0 {
		return EndOfDay, nil
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses "H:MM" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return NewTimeOfDay(h, m)
}

// Of returns the time of day of t observed in loc, truncated to the minute.
func Of(t time.Time, loc *time.Location) TimeOfDay {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return TimeOfDay(local.Hour()*60 + local.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ErrNonexistentTime reports a wall-clock time skipped by a DST transition.
var ErrNonexistentTime = errors.New("time of day does not exist on that date")

// On combines a YYYY-MM-DD calendar date with t as a wall-clock moment in loc.
// A time inside a DST gap returns ErrNonexistentTime.
func (t TimeOfDay) On(localDate string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateFormat, localDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", localDate, err)
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	if t < EndOfDay && (at.Hour() != t.Hour() || at.Minute() != t.Minute()) {
		return time.Time{}, fmt.Errorf("%w: %s %s in %s", ErrNonexistentTime, localDate, t, loc)
	}
	return at, nil
}
