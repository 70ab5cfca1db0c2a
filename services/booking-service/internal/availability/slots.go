package availability

import (
	"errors"
	"time"
)

// Available returns the template slots still offerable on targetDate.
//
// Booked instants are converted to wall-clock time in loc before being removed.
// When targetDate is the calendar date of now in loc, slots strictly earlier
// than now's time of day are removed as well; any other date is left untouched.
// Slots skipped by a DST transition on targetDate are never offered.
// now must be sampled once by the caller for the whole computation.
func Available(template Template, booked []time.Time, targetDate string, now time.Time, loc *time.Location) []TimeOfDay {
	if loc == nil {
		loc = time.UTC
	}

	taken := make(map[TimeOfDay]struct{}, len(booked))
	for _, b := range booked {
		taken[Of(b, loc)] = struct{}{}
	}

	cutoff := Midnight
	if now.In(loc).Format(DateFormat) == targetDate {
		cutoff = Of(now, loc)
	}

	out := make([]TimeOfDay, 0, len(template))
	for _, t := range template {
		if t < cutoff {
			continue
		}
		if _, ok := taken[t]; ok {
			continue
		}
		if _, err := t.On(targetDate, loc); errors.Is(err, ErrNonexistentTime) {
			continue
		}
		out = append(out, t)
	}
	return out
}
