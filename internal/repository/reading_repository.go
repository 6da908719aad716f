package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"bptracker/internal/apperr"
	"bptracker/internal/models"
)

type ReadingRepository interface {
	Create(ctx context.Context, reading *models.Reading) error
	ListAll(ctx context.Context) ([]models.Reading, error)
	ListRange(ctx context.Context, r models.DateRange) ([]models.Reading, error)
	Count(ctx context.Context) (int64, error)
	GetStats(ctx context.Context, r models.DateRange) (*ReadingStats, error)
}

type ReadingStats struct {
	Count        int64   `json:"count"`
	AvgSystolic  float64 `json:"avg_systolic"`
	AvgDiastolic float64 `json:"avg_diastolic"`
	AvgPulse     float64 `json:"avg_pulse"`
	MinSystolic  int     `json:"min_systolic"`
	MaxSystolic  int     `json:"max_systolic"`
	MinDiastolic int     `json:"min_diastolic"`
	MaxDiastolic int     `json:"max_diastolic"`
}

type readingRepository struct {
	db *gorm.DB
}

func NewReadingRepository(db *gorm.DB) ReadingRepository {
	return &readingRepository{db: db}
}

func (r *readingRepository) Create(ctx context.Context, reading *models.Reading) error {
	reading.RecordedAt = reading.RecordedAt.UTC().Truncate(time.Second)
	if err := r.db.WithContext(ctx).Create(reading).Error; err != nil {
		return apperr.New(apperr.KindStorage, "ReadingRepository.Create", err, "")
	}
	return nil
}

func (r *readingRepository) ListAll(ctx context.Context) ([]models.Reading, error) {
	var readings []models.Reading
	err := r.db.WithContext(ctx).
		Order("recorded_at ASC").
		Order("id ASC").
		Find(&readings).
		Error
	if err != nil {
		return nil, apperr.New(apperr.KindStorage, "ReadingRepository.ListAll", err, "")
	}
	return readings, nil
}

// ListRange returns readings dated within the range, or every reading when
// the range is not active.
func (r *readingRepository) ListRange(ctx context.Context, dr models.DateRange) ([]models.Reading, error) {
	if !dr.Active() {
		return r.ListAll(ctx)
	}

	from, to := dr.Bounds()
	var readings []models.Reading
	err := r.db.WithContext(ctx).
		Where("recorded_at >= ? AND recorded_at < ?", from, to).
		Order("recorded_at ASC").
		Order("id ASC").
		Find(&readings).
		Error
	if err != nil {
		return nil, apperr.New(apperr.KindStorage, "ReadingRepository.ListRange", err, "")
	}
	return readings, nil
}

func (r *readingRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reading{}).
		Count(&count).
		Error
	if err != nil {
		return 0, apperr.New(apperr.KindStorage, "ReadingRepository.Count", err, "")
	}
	return count, nil
}

func (r *readingRepository) scoped(ctx context.Context, dr models.DateRange) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Reading{})
	if dr.Active() {
		from, to := dr.Bounds()
		q = q.Where("recorded_at >= ? AND recorded_at < ?", from, to)
	}
	return q
}

func (r *readingRepository) GetStats(ctx context.Context, dr models.DateRange) (*ReadingStats, error) {
	const op = "ReadingRepository.GetStats"
	var stats ReadingStats

	if err := r.scoped(ctx, dr).Count(&stats.Count).Error; err != nil {
		return nil, apperr.New(apperr.KindStorage, op, err, "")
	}

	if stats.Count == 0 {
		return &stats, nil
	}

	row := r.scoped(ctx, dr).
		Select("AVG(systolic), AVG(diastolic), AVG(pulse), " +
			"MIN(systolic), MAX(systolic), MIN(diastolic), MAX(diastolic)").
		Row()

	err := row.Scan(&stats.AvgSystolic, &stats.AvgDiastolic, &stats.AvgPulse,
		&stats.MinSystolic, &stats.MaxSystolic,
		&stats.MinDiastolic, &stats.MaxDiastolic)
	if err != nil {
		return nil, apperr.New(apperr.KindStorage, op, err, "")
	}

	return &stats, nil
}
