package report

import (
	"fmt"
	"sort"
	"time"

	"bptracker/internal/apperr"
	"bptracker/internal/models"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	case "":
		return PeriodDaily, nil
	}
	return "", apperr.New(apperr.KindFormat, "report.ParsePeriod", nil,
		fmt.Sprintf("invalid period %q, expected daily, weekly or monthly", s))
}

// Bucket holds the arithmetic means of the readings in one period.
type Bucket struct {
	Label     string    `json:"label"`
	Start     time.Time `json:"start"`
	Count     int       `json:"count"`
	Systolic  float64   `json:"systolic"`
	Diastolic float64   `json:"diastolic"`
	Pulse     float64   `json:"pulse"`
}

// bucketStart returns the first instant of the period containing t in loc.
// Weeks start on Sunday.
func bucketStart(t time.Time, p Period, loc *time.Location) time.Time {
	t = t.In(loc)
	switch p {
	case PeriodWeekly:
		return time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), 0, 0, 0, 0, loc)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
}

func bucketLabel(start time.Time, p Period) string {
	if p == PeriodMonthly {
		return start.Format("2006-01")
	}
	return start.Format(models.DateLayout)
}

// Group buckets readings by period in loc, ordered by period start.
func Group(readings []models.Reading, p Period, loc *time.Location) []Bucket {
	type sums struct {
		start         time.Time
		n             int
		sys, dia, pul int
	}

	acc := make(map[int64]*sums)
	for _, r := range readings {
		start := bucketStart(r.RecordedAt, p, loc)
		s, ok := acc[start.Unix()]
		if !ok {
			s = &sums{start: start}
			acc[start.Unix()] = s
		}
		s.n++
		s.sys += r.Systolic
		s.dia += r.Diastolic
		s.pul += r.Pulse
	}

	buckets := make([]Bucket, 0, len(acc))
	for _, s := range acc {
		n := float64(s.n)
		buckets = append(buckets, Bucket{
			Label:     bucketLabel(s.start, p),
			Start:     s.start,
			Count:     s.n,
			Systolic:  float64(s.sys) / n,
			Diastolic: float64(s.dia) / n,
			Pulse:     float64(s.pul) / n,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}

// DailyMeans is Group by calendar day.
func DailyMeans(readings []models.Reading, loc *time.Location) []Bucket {
	return Group(readings, PeriodDaily, loc)
}
