// Package report renders stored readings as documents: PDF and HTML
// reports with a daily means chart, plus XLSX and CSV exports.
package report

import (
	"fmt"
	"time"

	"bptracker/internal/models"
)

// Document is the content shared by every output format.
type Document struct {
	Title       string
	From        string
	To          string
	GeneratedAt time.Time
	Chart       []byte
	Daily       []Bucket
	Rows        []models.ReadingView
	Stats       Stats
}

type Stats struct {
	Count        int
	MinSystolic  int
	MaxSystolic  int
	MinDiastolic int
	MaxDiastolic int
	MinPulse     int
	MaxPulse     int
}

// NewDocument builds the report content. readings must be non-empty and
// ordered by timestamp. The period is the range bounds when filtering is
// active, otherwise the dates of the first and last reading.
func NewDocument(readings []models.Reading, dr models.DateRange, loc *time.Location, now time.Time) (*Document, error) {
	if len(readings) == 0 {
		return nil, fmt.Errorf("no readings to report")
	}

	doc := &Document{
		GeneratedAt: now.In(loc),
		Daily:       DailyMeans(readings, loc),
		Rows:        make([]models.ReadingView, len(readings)),
		Stats:       statsOf(readings),
	}

	for i := range readings {
		doc.Rows[i] = readings[i].View(loc)
	}

	if dr.Active() {
		doc.From = dr.Start.In(loc).Format(models.DateLayout)
		doc.To = dr.End.In(loc).Format(models.DateLayout)
	} else {
		doc.From = doc.Daily[0].Label
		doc.To = doc.Daily[len(doc.Daily)-1].Label
	}
	doc.Title = fmt.Sprintf("Blood Pressure Report %s to %s", doc.From, doc.To)

	chart, err := Chart(doc.Daily)
	if err != nil {
		return nil, err
	}
	doc.Chart = chart

	return doc, nil
}

func statsOf(readings []models.Reading) Stats {
	s := Stats{
		Count:        len(readings),
		MinSystolic:  readings[0].Systolic,
		MaxSystolic:  readings[0].Systolic,
		MinDiastolic: readings[0].Diastolic,
		MaxDiastolic: readings[0].Diastolic,
		MinPulse:     readings[0].Pulse,
		MaxPulse:     readings[0].Pulse,
	}
	for _, r := range readings[1:] {
		s.MinSystolic = min(s.MinSystolic, r.Systolic)
		s.MaxSystolic = max(s.MaxSystolic, r.Systolic)
		s.MinDiastolic = min(s.MinDiastolic, r.Diastolic)
		s.MaxDiastolic = max(s.MaxDiastolic, r.Diastolic)
		s.MinPulse = min(s.MinPulse, r.Pulse)
		s.MaxPulse = max(s.MaxPulse, r.Pulse)
	}
	return s
}

// Mean formats a daily mean for display.
func Mean(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
