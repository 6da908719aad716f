package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bptracker/internal/apperr"
	"bptracker/internal/cache"
	"bptracker/internal/models"
	"bptracker/internal/ocr"
	"bptracker/internal/report"
	"bptracker/internal/repository"
)

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(ctx context.Context, data []byte) (*ocr.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("engine expected png: %w", err)
	}
	return &ocr.Result{Text: f.text, Engine: "fake", ProcessedAt: time.Now()}, nil
}

func (f *fakeEngine) Close() error { return nil }

type fixture struct {
	db       *gorm.DB
	readings repository.ReadingRepository
	scans    repository.ScanRepository
	engine   *fakeEngine
	cache    *cache.ReportCache
	svc      *readingService
	reports  *reportService
	now      time.Time
}

var jst = time.FixedZone("JST", 9*3600)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Reading{}, &models.ScanLog{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		db:       db,
		readings: repository.NewReadingRepository(db),
		scans:    repository.NewScanRepository(db),
		engine:   &fakeEngine{},
		cache:    cache.NewReportCache(repository.NewCacheRepository(client), time.Hour),
		now:      time.Date(2024, 3, 5, 9, 15, 30, 500, jst),
	}

	f.svc = NewReadingService(f.readings, f.scans, f.engine, nil, f.cache,
		ReadingConfig{Location: jst, OCRTimeout: time.Second}, zap.NewNop()).(*readingService)
	f.svc.now = func() time.Time { return f.now }

	f.reports = NewReportService(f.readings, f.cache, jst, zap.NewNop()).(*reportService)
	f.reports.now = func() time.Time { return f.now }
	return f
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngestImageStoresReading(t *testing.T) {
	f := newFixture(t)
	f.engine.text = "  120 / 80  70 \n"

	reading, err := f.svc.IngestImage(context.Background(), pngImage(t))
	require.NoError(t, err)

	assert.NotZero(t, reading.ID)
	assert.Equal(t, 120, reading.Systolic)
	assert.Equal(t, 80, reading.Diastolic)
	assert.Equal(t, 70, reading.Pulse)
	assert.Equal(t, models.SourceOCR, reading.Source)

	all, err := f.readings.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].RecordedAt.Equal(f.now.Truncate(time.Second)))

	logs, err := f.scans.GetLastN(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ScanStored, logs[0].Outcome)
	assert.Equal(t, "slash", logs[0].Format)
	require.NotNil(t, logs[0].ReadingID)
	assert.Equal(t, reading.ID, *logs[0].ReadingID)

	var payload models.ScanPayload
	require.NoError(t, json.Unmarshal(logs[0].Payload, &payload))
	assert.Equal(t, "png", payload.SourceFormat)
}

func TestIngestImageNoMatch(t *testing.T) {
	f := newFixture(t)
	f.engine.text = "hello world"

	_, err := f.svc.IngestImage(context.Background(), pngImage(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrExtraction))

	n, err := f.readings.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := f.scans.CountByOutcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.ScanNoMatch])
}

func TestIngestImageOutOfRange(t *testing.T) {
	f := newFixture(t)
	f.engine.text = "SYS 350 DIA 80 PUL 70"

	_, err := f.svc.IngestImage(context.Background(), pngImage(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	n, err := f.readings.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := f.scans.CountByOutcome(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.ScanInvalid])
}

func TestIngestImageDecodeError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IngestImage(context.Background(), []byte("definitely not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrDecode))
	assert.Zero(t, f.engine.calls)
}

func TestIngestImageOCRError(t *testing.T) {
	f := newFixture(t)
	f.engine.err = ocr.ErrEngineFailed

	_, err := f.svc.IngestImage(context.Background(), pngImage(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrOCR))
	assert.True(t, errors.Is(err, ocr.ErrEngineFailed))
}

func TestScanDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	f.engine.text = "sys 118 dia 76 hr 65"

	res, err := f.svc.Scan(context.Background(), pngImage(t))
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "labeled", res.Format)
	assert.Equal(t, 118, res.Measurement.Systolic)

	n, err := f.readings.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestManualRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestManual(ctx, ManualInput{Systolic: 131, Diastolic: 84, Pulse: 66, Date: "2024-03-01"})
	require.NoError(t, err)
	_, err = f.svc.IngestManual(ctx, ManualInput{Systolic: 125, Diastolic: 82, Pulse: 70, Date: "2024-03-01T08:30:00"})
	require.NoError(t, err)

	all, err := f.svc.List(ctx, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "2024-03-01T00:00:00", all[0].View(jst).Timestamp)
	assert.Equal(t, 131, all[0].Systolic)
	assert.Equal(t, "2024-03-01T08:30:00", all[1].View(jst).Timestamp)
	assert.Equal(t, models.SourceManual, all[1].Source)
}

func TestIngestManualDefaultsToNow(t *testing.T) {
	f := newFixture(t)

	reading, err := f.svc.IngestManual(context.Background(), ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70})
	require.NoError(t, err)
	assert.True(t, reading.RecordedAt.Equal(f.now.Truncate(time.Second)))
}

func TestIngestManualErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestManual(ctx, ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70, Date: "not-a-date"})
	assert.True(t, errors.Is(err, apperr.ErrFormat))

	_, err = f.svc.IngestManual(ctx, ManualInput{Systolic: 49, Diastolic: 80, Pulse: 70})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	n, err := f.readings.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, in := range []ManualInput{
		{Systolic: 120, Diastolic: 80, Pulse: 70, Date: "2024-03-02 08:00"},
		{Systolic: 130, Diastolic: 90, Pulse: 80, Date: "2024-03-03 08:00"},
		{Systolic: 140, Diastolic: 80, Pulse: 90, Date: "2024-03-04 08:00"},
	} {
		_, err := f.svc.IngestManual(ctx, in)
		require.NoError(t, err)
	}

	daily, err := f.svc.Summary(ctx, models.DateRange{}, "daily")
	require.NoError(t, err)
	assert.Len(t, daily, 3)

	weekly, err := f.svc.Summary(ctx, models.DateRange{}, "weekly")
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, "2024-03-03", weekly[1].Label)
	assert.InDelta(t, 135.0, weekly[1].Systolic, 1e-9)

	_, err = f.svc.Summary(ctx, models.DateRange{}, "yearly")
	assert.True(t, errors.Is(err, apperr.ErrFormat))
}

func TestSummaryCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestManual(ctx, ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70, Date: "2024-03-02 08:00"})
	require.NoError(t, err)

	first, err := f.svc.Summary(ctx, models.DateRange{}, "daily")
	require.NoError(t, err)
	require.Len(t, first, 1)

	key, err := f.cache.Key(ctx, "summary", "daily", models.DateRange{})
	require.NoError(t, err)
	var stored []report.Bucket
	found, err := f.cache.GetJSON(ctx, key, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first[0].Label, stored[0].Label)
	assert.True(t, first[0].Start.Equal(stored[0].Start))

	again, err := f.svc.Summary(ctx, models.DateRange{}, "daily")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.InDelta(t, first[0].Systolic, again[0].Systolic, 1e-9)

	// A new reading moves the summary to a fresh key.
	_, err = f.svc.IngestManual(ctx, ManualInput{Systolic: 140, Diastolic: 90, Pulse: 80, Date: "2024-03-02 20:00"})
	require.NoError(t, err)
	fresh, err := f.svc.Summary(ctx, models.DateRange{}, "daily")
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 2, fresh[0].Count)
	assert.InDelta(t, 130.0, fresh[0].Systolic, 1e-9)
}

func TestRenderReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reports.Render(ctx, models.DateRange{}, FormatPDF)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.IngestManual(ctx, ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70, Date: "2024-03-01T08:30:00"})
	require.NoError(t, err)

	out, err := f.reports.Render(ctx, models.DateRange{}, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.Equal(t, "report.pdf", out.Filename)
	assert.False(t, out.Cached)

	cached, err := f.reports.Render(ctx, models.DateRange{}, FormatPDF)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, out.Data, cached.Data)

	// A new reading invalidates the cached document.
	_, err = f.svc.IngestManual(ctx, ManualInput{Systolic: 125, Diastolic: 82, Pulse: 71, Date: "2024-03-02"})
	require.NoError(t, err)
	fresh, err := f.reports.Render(ctx, models.DateRange{}, FormatPDF)
	require.NoError(t, err)
	assert.False(t, fresh.Cached)
}

func TestRenderReportRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestManual(ctx, ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70, Date: "2024-03-01"})
	require.NoError(t, err)

	dr, err := models.ParseDateRange("2024-04-01", "2024-04-30", jst)
	require.NoError(t, err)
	_, err = f.reports.Render(ctx, dr, FormatHTML)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	dr, err = models.ParseDateRange("2024-03-01", "2024-03-01", jst)
	require.NoError(t, err)
	out, err := f.reports.Render(ctx, dr, FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(out.Data), "Blood Pressure Report 2024-03-01 to 2024-03-01")

	_, err = f.reports.Render(ctx, dr, "docx")
	assert.True(t, errors.Is(err, apperr.ErrFormat))
}

func TestRenderWithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewReportService(f.readings, nil, jst, zap.NewNop())

	_, err := f.svc.IngestManual(ctx, ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		out, err := svc.Render(ctx, models.DateRange{}, FormatPDF)
		require.NoError(t, err)
		assert.False(t, out.Cached)
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reports.Export(ctx, models.DateRange{}, FormatCSV)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	for _, d := range []string{"2024-03-01T07:00:00", "2024-03-01T19:00:00"} {
		_, err := f.svc.IngestManual(ctx, ManualInput{Systolic: 120, Diastolic: 80, Pulse: 70, Date: d})
		require.NoError(t, err)
	}

	out, err := f.reports.Export(ctx, models.DateRange{}, "")
	require.NoError(t, err)
	assert.Equal(t, "readings.csv", out.Filename)
	assert.Equal(t, 3, bytes.Count(out.Data, []byte("\n")))

	out, err = f.reports.Export(ctx, models.DateRange{}, "excel")
	require.NoError(t, err)
	assert.Equal(t, "readings.xlsx", out.Filename)
	assert.True(t, bytes.HasPrefix(out.Data, []byte("PK")))

	_, err = f.reports.Export(ctx, models.DateRange{}, "json")
	assert.True(t, errors.Is(err, apperr.ErrFormat))
}
