package report

import (
	"bytes"
	"encoding/csv"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bptracker/internal/apperr"
	"bptracker/internal/models"
)

func sample() []models.Reading {
	return []models.Reading{
		{ID: 1, RecordedAt: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), Systolic: 120, Diastolic: 80, Pulse: 70},
		{ID: 2, RecordedAt: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC), Systolic: 131, Diastolic: 85, Pulse: 75},
		{ID: 3, RecordedAt: time.Date(2024, 3, 3, 7, 15, 0, 0, time.UTC), Systolic: 140, Diastolic: 90, Pulse: 80},
	}
}

func sampleDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := NewDocument(sample(), models.DateRange{}, time.UTC, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return doc
}

func TestDailyMeans(t *testing.T) {
	buckets := DailyMeans(sample(), time.UTC)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-03-01", buckets[0].Label)
	assert.Equal(t, 2, buckets[0].Count)
	assert.InDelta(t, 125.5, buckets[0].Systolic, 1e-9)
	assert.InDelta(t, 82.5, buckets[0].Diastolic, 1e-9)
	assert.InDelta(t, 72.5, buckets[0].Pulse, 1e-9)
	assert.Equal(t, "2024-03-03", buckets[1].Label)
	assert.Equal(t, "125.5", Mean(buckets[0].Systolic))
}

func TestDailyMeansUsesLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on March 1 is March 2 in JST.
	buckets := DailyMeans(sample(), jst)

	require.Len(t, buckets, 3)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"},
		[]string{buckets[0].Label, buckets[1].Label, buckets[2].Label})
}

func TestGroupWeeklyStartsSunday(t *testing.T) {
	readings := []models.Reading{
		// Saturday 2024-03-02 and Sunday 2024-03-03 fall in different weeks.
		{RecordedAt: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), Systolic: 120, Diastolic: 80, Pulse: 70},
		{RecordedAt: time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), Systolic: 130, Diastolic: 84, Pulse: 72},
		{RecordedAt: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), Systolic: 140, Diastolic: 88, Pulse: 74},
	}

	buckets := Group(readings, PeriodWeekly, time.UTC)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-02-25", buckets[0].Label)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, "2024-03-03", buckets[1].Label)
	assert.Equal(t, 2, buckets[1].Count)
	assert.InDelta(t, 135.0, buckets[1].Systolic, 1e-9)
}

func TestGroupMonthly(t *testing.T) {
	readings := append(sample(), models.Reading{
		RecordedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Systolic: 100, Diastolic: 60, Pulse: 60,
	})

	buckets := Group(readings, PeriodMonthly, time.UTC)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-03", buckets[0].Label)
	assert.Equal(t, 3, buckets[0].Count)
	assert.Equal(t, "2024-04", buckets[1].Label)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodDaily, p)

	p, err = ParsePeriod("weekly")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeekly, p)

	_, err = ParsePeriod("hourly")
	assert.ErrorIs(t, err, apperr.ErrFormat)
}

func TestChartIsPNG(t *testing.T) {
	data, err := Chart(DailyMeans(sample(), time.UTC))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), img.Bounds().Dy())
}

func TestNewDocumentTitle(t *testing.T) {
	doc := sampleDoc(t)
	assert.Equal(t, "Blood Pressure Report 2024-03-01 to 2024-03-03", doc.Title)
	assert.Len(t, doc.Rows, 3)
	assert.Equal(t, 120, doc.Stats.MinSystolic)
	assert.Equal(t, 90, doc.Stats.MaxDiastolic)

	dr, err := models.ParseDateRange("2024-02-01", "2024-03-31", time.UTC)
	require.NoError(t, err)
	doc, err = NewDocument(sample(), dr, time.UTC, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Blood Pressure Report 2024-02-01 to 2024-03-31", doc.Title)

	_, err = NewDocument(nil, dr, time.UTC, time.Now())
	assert.Error(t, err)
}

func TestPDF(t *testing.T) {
	doc := sampleDoc(t)

	data, err := PDF(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	pages, err := PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestPDFOneRowPerReading(t *testing.T) {
	doc := sampleDoc(t)

	data, err := renderPDF(doc, false)
	require.NoError(t, err)

	content := string(data)
	for _, r := range doc.Rows {
		assert.Equal(t, 1, strings.Count(content, "("+r.Timestamp+")"), r.Timestamp)
	}
}

func TestPDFManyReadingsPaginates(t *testing.T) {
	var readings []models.Reading
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		readings = append(readings, models.Reading{
			ID: uint(i + 1), RecordedAt: start.Add(time.Duration(i) * 12 * time.Hour),
			Systolic: 110 + i%30, Diastolic: 70 + i%20, Pulse: 60 + i%25,
		})
	}
	doc, err := NewDocument(readings, models.DateRange{}, time.UTC, time.Now())
	require.NoError(t, err)

	data, err := PDF(doc)
	require.NoError(t, err)

	pages, err := PageCount(data)
	require.NoError(t, err)
	assert.Greater(t, pages, 1)
}

func TestHTML(t *testing.T) {
	doc := sampleDoc(t)

	data, err := HTML(doc)
	require.NoError(t, err)

	page := string(data)
	assert.Contains(t, page, "<title>Blood Pressure Report 2024-03-01 to 2024-03-03</title>")
	assert.Contains(t, page, `src="data:image/png;base64,`)
	assert.Equal(t, 3, strings.Count(page, `<tr class="reading">`))
	assert.Contains(t, page, "<td>125.5</td>")
}

func TestExcel(t *testing.T) {
	doc := sampleDoc(t)

	data, err := Excel(doc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{readingsSheet, dailySheet, infoSheet}, f.GetSheetList())

	rows, err := f.GetRows(readingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2024-03-01T08:30:00", "120", "80", "70"}, rows[1])

	daily, err := f.GetRows(dailySheet)
	require.NoError(t, err)
	assert.Len(t, daily, 3)
}

func TestCSV(t *testing.T) {
	doc := sampleDoc(t)

	data, err := CSV(doc.Rows)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"timestamp", "systolic", "diastolic", "pulse"}, records[0])
	assert.Equal(t, []string{"2024-03-03T07:15:00", "140", "90", "80"}, records[3])
}
