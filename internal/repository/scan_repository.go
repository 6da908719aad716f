package repository

import (
	"context"

	"gorm.io/gorm"

	"bptracker/internal/models"
)

type ScanRepository interface {
	Create(ctx context.Context, log *models.ScanLog) error
	GetLastN(ctx context.Context, n int) ([]*models.ScanLog, error)
	Count(ctx context.Context) (int64, error)
	CountByOutcome(ctx context.Context) (map[string]int64, error)
}

type scanRepository struct {
	db *gorm.DB
}

func NewScanRepository(db *gorm.DB) ScanRepository {
	return &scanRepository{db: db}
}

func (r *scanRepository) Create(ctx context.Context, log *models.ScanLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *scanRepository) GetLastN(ctx context.Context, n int) ([]*models.ScanLog, error) {
	if n < 1 || n > 1000 {
		n = 50
	}

	var logs []*models.ScanLog
	err := r.db.WithContext(ctx).
		Order("scanned_at DESC").
		Order("id DESC").
		Limit(n).
		Find(&logs).
		Error
	return logs, err
}

func (r *scanRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanLog{}).
		Count(&count).
		Error
	return count, err
}

func (r *scanRepository) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ScanLog{}).
		Select("outcome, COUNT(*) AS total").
		Group("outcome").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Total
	}
	return counts, nil
}
