package daterange

import (
	"errors"
	"iter"
	"time"
)

var ErrInvalidRange = errors.New("start date is after end date")

// DefaultStart is the historical default population start date
var DefaultStart = time.Date(2019, time.May, 1, 0, 0, 0, 0, time.UTC)

// Range is an inclusive range of calendar days
type Range struct {
	start time.Time
	end   time.Time
}

// New creates a new day range, normalizing both bounds to UTC midnight.
// Both bounds are inclusive
func New(start, end time.Time) (Range, error) {
	var (
		s = Normalize(start)
		e = Normalize(end)
	)

	if s.After(e) {
		return Range{}, ErrInvalidRange
	}

	return Range{
		start: s,
		end:   e,
	}, nil
}

func (r Range) Start() time.Time {
	return r.start
}

func (r Range) End() time.Time {
	return r.end
}

// Len returns the number of days in the range (both endpoints counted)
func (r Range) Len() int {
	return int(r.end.Sub(r.start).Hours()/24) + 1
}

// Contains checks if the given day falls within the range
func (r Range) Contains(day time.Time) bool {
	d := Normalize(day)

	return !d.Before(r.start) && !d.After(r.end)
}

// Days yields the ordered day sequence, start to end inclusive,
// advancing by exactly one day
func (r Range) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for day := r.start; !day.After(r.end); day = day.AddDate(0, 0, 1) {
			if !yield(day) {
				return
			}
		}
	}
}

// Normalize strips the time component, leaving the UTC calendar day
func Normalize(t time.Time) time.Time {
	u := t.UTC()

	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
