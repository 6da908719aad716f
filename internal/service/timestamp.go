package service

import (
	"fmt"
	"strings"
	"time"

	"bptracker/internal/apperr"
)

type timestampLayout struct {
	layout string
	zoned  bool
}

// Tried in order. The date-only layout yields midnight; zoned layouts
// carry their own offset.
var timestampLayouts = []timestampLayout{
	{layout: "2006-01-02"},
	{layout: "2006-01-02T15:04:05"},
	{layout: "2006-01-02T15:04"},
	{layout: "2006-01-02 15:04:05"},
	{layout: "2006-01-02 15:04"},
	{layout: time.RFC3339, zoned: true},
	{layout: time.RFC3339Nano, zoned: true},
}

// ParseTimestamp parses a manual entry date. Date-only values mean
// midnight of that day; values without an offset are read in loc.
// The result has second precision.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if l.zoned {
			t, err = time.Parse(l.layout, s)
		} else {
			t, err = time.ParseInLocation(l.layout, s, loc)
		}
		if err == nil {
			return t.Truncate(time.Second), nil
		}
	}

	return time.Time{}, apperr.New(apperr.KindFormat, "ParseTimestamp", nil,
		fmt.Sprintf("invalid date format %q", s))
}
