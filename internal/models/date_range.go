package models

import (
	"fmt"
	"time"

	"bptracker/internal/apperr"
)

// DateLayout is the calendar date form accepted in query parameters.
const DateLayout = "2006-01-02"

// DateRange selects readings by calendar date in Location. Filtering is
// active only when both bounds are set.
type DateRange struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// ParseDateRange parses optional YYYY-MM-DD bounds. The bounds are read
// only when both are given; a lone bound, well-formed or not, yields the
// unfiltered range.
func ParseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	const op = "models.ParseDateRange"

	if loc == nil {
		loc = time.Local
	}

	r := DateRange{Location: loc}
	if from == "" || to == "" {
		return r, nil
	}

	start, err := time.ParseInLocation(DateLayout, from, loc)
	if err != nil {
		return DateRange{}, apperr.New(apperr.KindFormat, op, err,
			fmt.Sprintf("invalid from date %q, expected YYYY-MM-DD", from))
	}
	end, err := time.ParseInLocation(DateLayout, to, loc)
	if err != nil {
		return DateRange{}, apperr.New(apperr.KindFormat, op, err,
			fmt.Sprintf("invalid to date %q, expected YYYY-MM-DD", to))
	}

	r.Start, r.End = start, end
	return r, nil
}

func (r DateRange) Active() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

func (r DateRange) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Bounds returns the half-open UTC interval [start 00:00, end+1d 00:00).
func (r DateRange) Bounds() (from, to time.Time) {
	loc := r.location()
	s := r.Start.In(loc)
	e := r.End.In(loc)
	from = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	to = time.Date(e.Year(), e.Month(), e.Day()+1, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC()
}

// Key identifies the range in cache keys. Inactive ranges share one key.
func (r DateRange) Key() string {
	if !r.Active() {
		return "all"
	}
	loc := r.location()
	return r.Start.In(loc).Format(DateLayout) + "_" + r.End.In(loc).Format(DateLayout)
}
