package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bptracker/internal/apperr"
	"bptracker/internal/cache"
	"bptracker/internal/models"
	"bptracker/internal/report"
	"bptracker/internal/repository"
)

const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type ReportService interface {
	Render(ctx context.Context, r models.DateRange, format string) (*Rendered, error)
	Export(ctx context.Context, r models.DateRange, format string) (*Rendered, error)
}

// Rendered is a finished document ready to send.
type Rendered struct {
	Data        []byte
	ContentType string
	Filename    string
	Cached      bool
}

type reportService struct {
	repo     repository.ReadingRepository
	cache    *cache.ReportCache
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

type renderer struct {
	contentType string
	filename    string
	render      func(doc *report.Document) ([]byte, error)
}

var reportFormats = map[string]renderer{
	FormatPDF:  {"application/pdf", "report.pdf", report.PDF},
	FormatHTML: {"text/html; charset=utf-8", "report.html", report.HTML},
}

var exportFormats = map[string]renderer{
	FormatCSV: {"text/csv; charset=utf-8", "readings.csv", func(doc *report.Document) ([]byte, error) {
		return report.CSV(doc.Rows)
	}},
	FormatXLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "readings.xlsx", report.Excel},
}

func NewReportService(
	repo repository.ReadingRepository,
	reportCache *cache.ReportCache,
	location *time.Location,
	logger *zap.Logger,
) ReportService {
	if location == nil {
		location = time.Local
	}
	return &reportService{
		repo:     repo,
		cache:    reportCache,
		location: location,
		logger:   logger.With(zap.String("component", "report_service")),
		now:      time.Now,
	}
}

func (s *reportService) Render(ctx context.Context, r models.DateRange, format string) (*Rendered, error) {
	if format == "" {
		format = FormatPDF
	}
	rd, ok := reportFormats[format]
	if !ok {
		return nil, apperr.New(apperr.KindFormat, "ReportService.Render", nil,
			fmt.Sprintf("unsupported report format %q", format))
	}
	return s.produce(ctx, "ReportService.Render", "report", format, rd, r)
}

func (s *reportService) Export(ctx context.Context, r models.DateRange, format string) (*Rendered, error) {
	switch format {
	case "":
		format = FormatCSV
	case "excel":
		format = FormatXLSX
	}
	rd, ok := exportFormats[format]
	if !ok {
		return nil, apperr.New(apperr.KindFormat, "ReportService.Export", nil,
			fmt.Sprintf("unsupported export format %q", format))
	}
	return s.produce(ctx, "ReportService.Export", "export", format, rd, r)
}

func (s *reportService) produce(ctx context.Context, op, kind, format string, rd renderer, r models.DateRange) (*Rendered, error) {
	out := &Rendered{ContentType: rd.contentType, Filename: rd.filename}

	key, err := s.cache.Key(ctx, kind, format, r)
	if err != nil {
		s.logger.Warn("report cache unavailable", zap.String("kind", kind), zap.Error(err))
		key = ""
	}
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		out.Data, out.Cached = data, true
		return out, nil
	}

	readings, err := s.repo.ListRange(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, apperr.New(apperr.KindNotFound, op, nil, "")
	}

	doc, err := report.NewDocument(readings, r, s.location, s.now())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err, "")
	}

	start := time.Now()
	data, err = rd.render(doc)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err, "")
	}
	out.Data = data

	s.logger.Info("report rendered",
		zap.String("kind", kind),
		zap.String("format", format),
		zap.String("range", r.Key()),
		zap.Int("readings", len(readings)),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("failed to cache report", zap.String("key", key), zap.Error(err))
	}

	return out, nil
}
