package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"bptracker/internal/apperr"
	"bptracker/internal/cache"
	"bptracker/internal/extractor"
	"bptracker/internal/imaging"
	"bptracker/internal/models"
	"bptracker/internal/ocr"
	"bptracker/internal/report"
	"bptracker/internal/repository"
)

type ReadingService interface {
	Scan(ctx context.Context, image []byte) (*ScanResult, error)
	IngestImage(ctx context.Context, image []byte) (*models.Reading, error)
	IngestManual(ctx context.Context, input ManualInput) (*models.Reading, error)
	List(ctx context.Context, r models.DateRange) ([]models.Reading, error)
	Summary(ctx context.Context, r models.DateRange, period string) ([]report.Bucket, error)
}

// ScanResult is the outcome of OCR and extraction on one image.
type ScanResult struct {
	Engine      string                `json:"engine"`
	ImageFormat string                `json:"image_format"`
	Text        string                `json:"text"`
	Confidence  float32               `json:"confidence,omitempty"`
	Duration    time.Duration         `json:"duration"`
	Matched     bool                  `json:"matched"`
	Format      string                `json:"format,omitempty"`
	Measurement extractor.Measurement `json:"measurement"`
}

// ManualInput is a reading typed in by the user. Date is optional.
type ManualInput struct {
	Systolic  int
	Diastolic int
	Pulse     int
	Date      string
}

type ReadingConfig struct {
	Location   *time.Location
	OCRTimeout time.Duration
}

type readingService struct {
	repo       repository.ReadingRepository
	scanRepo   repository.ScanRepository
	engine     ocr.Engine
	extractor  *extractor.Extractor
	cache      *cache.ReportCache
	location   *time.Location
	ocrTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewReadingService(
	repo repository.ReadingRepository,
	scanRepo repository.ScanRepository,
	engine ocr.Engine,
	ext *extractor.Extractor,
	reportCache *cache.ReportCache,
	config ReadingConfig,
	logger *zap.Logger,
) ReadingService {
	if ext == nil {
		ext = extractor.New()
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &readingService{
		repo:       repo,
		scanRepo:   scanRepo,
		engine:     engine,
		extractor:  ext,
		cache:      reportCache,
		location:   config.Location,
		ocrTimeout: config.OCRTimeout,
		logger:     logger.With(zap.String("component", "reading_service")),
		now:        time.Now,
	}
}

func (s *readingService) Scan(ctx context.Context, image []byte) (*ScanResult, error) {
	const op = "ReadingService.Scan"

	decoded, err := imaging.Decode(image)
	if err != nil {
		return nil, err
	}

	normalized, err := decoded.PNG()
	if err != nil {
		return nil, apperr.New(apperr.KindDecode, op, err, "")
	}

	if s.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ocrTimeout)
		defer cancel()
	}

	res, err := s.engine.Recognize(ctx, normalized)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindOCR, op, err, "")
	}

	result := &ScanResult{
		Engine:      res.Engine,
		ImageFormat: decoded.Format,
		Text:        res.Text,
		Confidence:  res.Confidence,
		Duration:    res.ProcessingDuration,
	}
	result.Measurement, result.Format, result.Matched = s.extractor.Extract(res.Text)

	s.logger.Debug("image scanned",
		zap.String("engine", result.Engine),
		zap.String("image_format", result.ImageFormat),
		zap.Bool("matched", result.Matched),
		zap.String("format", result.Format),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

func (s *readingService) IngestImage(ctx context.Context, image []byte) (*models.Reading, error) {
	const op = "ReadingService.IngestImage"

	scan, err := s.Scan(ctx, image)
	if err != nil {
		return nil, err
	}

	if !scan.Matched {
		s.recordScan(ctx, scan, models.ScanNoMatch, nil, nil)
		return nil, apperr.New(apperr.KindExtraction, op, nil, "")
	}

	reading := &models.Reading{
		RecordedAt: s.now().Truncate(time.Second),
		Systolic:   scan.Measurement.Systolic,
		Diastolic:  scan.Measurement.Diastolic,
		Pulse:      scan.Measurement.Pulse,
		Source:     models.SourceOCR,
	}

	if err := reading.Validate(); err != nil {
		s.recordScan(ctx, scan, models.ScanInvalid, nil, err)
		return nil, err
	}

	if err := s.store(ctx, reading); err != nil {
		return nil, err
	}

	s.recordScan(ctx, scan, models.ScanStored, &reading.ID, nil)
	return reading, nil
}

func (s *readingService) IngestManual(ctx context.Context, input ManualInput) (*models.Reading, error) {
	recordedAt := s.now().Truncate(time.Second)
	if input.Date != "" {
		t, err := ParseTimestamp(input.Date, s.location)
		if err != nil {
			return nil, err
		}
		recordedAt = t
	}

	reading := &models.Reading{
		RecordedAt: recordedAt,
		Systolic:   input.Systolic,
		Diastolic:  input.Diastolic,
		Pulse:      input.Pulse,
		Source:     models.SourceManual,
	}

	if err := reading.Validate(); err != nil {
		return nil, err
	}

	if err := s.store(ctx, reading); err != nil {
		return nil, err
	}
	return reading, nil
}

func (s *readingService) store(ctx context.Context, reading *models.Reading) error {
	if err := s.repo.Create(ctx, reading); err != nil {
		s.logger.Error("failed to store reading", zap.Error(err))
		return err
	}

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("failed to bump report cache version", zap.Error(err))
	}

	s.logger.Info("reading stored",
		zap.Uint("id", reading.ID),
		zap.String("source", reading.Source),
		zap.Time("recorded_at", reading.RecordedAt),
	)
	return nil
}

// recordScan writes the audit row for an upload. Failures are logged only.
func (s *readingService) recordScan(ctx context.Context, scan *ScanResult, outcome string, readingID *uint, cause error) {
	payload := models.ScanPayload{
		Text:         scan.Text,
		Confidence:   scan.Confidence,
		DurationMs:   scan.Duration.Milliseconds(),
		SourceFormat: scan.ImageFormat,
	}
	if cause != nil {
		payload.Error = apperr.MessageOf(cause)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal scan payload", zap.Error(err))
		return
	}

	log := &models.ScanLog{
		ScannedAt: s.now().UTC().Truncate(time.Second),
		Engine:    scan.Engine,
		Format:    scan.Format,
		Outcome:   outcome,
		ReadingID: readingID,
		Payload:   datatypes.JSON(data),
	}
	if err := s.scanRepo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to record scan", zap.String("outcome", outcome), zap.Error(err))
	}
}

func (s *readingService) List(ctx context.Context, r models.DateRange) ([]models.Reading, error) {
	return s.repo.ListRange(ctx, r)
}

func (s *readingService) Summary(ctx context.Context, r models.DateRange, period string) ([]report.Bucket, error) {
	p, err := report.ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	key, err := s.cache.Key(ctx, "summary", string(p), r)
	if err != nil {
		s.logger.Warn("summary cache unavailable", zap.Error(err))
		key = ""
	}
	var cached []report.Bucket
	if found, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.logger.Warn("summary cache read failed", zap.String("key", key), zap.Error(err))
	} else if found {
		return cached, nil
	}

	readings, err := s.repo.ListRange(ctx, r)
	if err != nil {
		return nil, err
	}
	buckets := report.Group(readings, p, s.location)

	if err := s.cache.SetJSON(ctx, key, buckets); err != nil {
		s.logger.Warn("failed to cache summary", zap.String("key", key), zap.Error(err))
	}
	return buckets, nil
}
