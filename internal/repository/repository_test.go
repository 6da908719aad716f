package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bptracker/internal/apperr"
	"bptracker/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seed(t *testing.T, repo ReadingRepository, at time.Time, sys, dia, pulse int) *models.Reading {
	t.Helper()
	r := &models.Reading{RecordedAt: at, Systolic: sys, Diastolic: dia, Pulse: pulse, Source: models.SourceManual}
	require.NoError(t, repo.Create(context.Background(), r))
	return r
}

func TestReadingRepositoryCreateAssignsIDs(t *testing.T) {
	repo := NewReadingRepository(newTestDB(t))
	at := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	a := seed(t, repo, at, 120, 80, 70)
	b := seed(t, repo, at, 121, 81, 71)

	assert.NotZero(t, a.ID)
	assert.Greater(t, b.ID, a.ID)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReadingRepositoryOrdering(t *testing.T) {
	repo := NewReadingRepository(newTestDB(t))
	ctx := context.Background()

	late := seed(t, repo, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), 130, 85, 72)
	early := seed(t, repo, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 120, 80, 70)
	tie := seed(t, repo, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 125, 82, 71)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{early.ID, tie.ID, late.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})
}

func TestReadingRepositoryListRangeInclusiveDays(t *testing.T) {
	repo := NewReadingRepository(newTestDB(t))
	ctx := context.Background()
	loc := time.FixedZone("JST", 9*3600)

	seed(t, repo, time.Date(2024, 2, 29, 23, 59, 59, 0, loc), 110, 70, 60)
	first := seed(t, repo, time.Date(2024, 3, 1, 0, 0, 0, 0, loc), 120, 80, 70)
	last := seed(t, repo, time.Date(2024, 3, 3, 23, 59, 59, 0, loc), 130, 85, 75)
	seed(t, repo, time.Date(2024, 3, 4, 0, 0, 0, 0, loc), 140, 90, 80)

	dr, err := models.ParseDateRange("2024-03-01", "2024-03-03", loc)
	require.NoError(t, err)

	got, err := repo.ListRange(ctx, dr)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, last.ID, got[1].ID)
}

func TestReadingRepositoryListRangeHalfOpenReturnsAll(t *testing.T) {
	repo := NewReadingRepository(newTestDB(t))
	ctx := context.Background()

	seed(t, repo, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), 120, 80, 70)
	seed(t, repo, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), 120, 80, 70)

	dr, err := models.ParseDateRange("2024-05-01", "", time.UTC)
	require.NoError(t, err)

	got, err := repo.ListRange(ctx, dr)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReadingRepositoryGetStats(t *testing.T) {
	repo := NewReadingRepository(newTestDB(t))
	ctx := context.Background()

	empty, err := repo.GetStats(ctx, models.DateRange{})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)

	seed(t, repo, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 120, 80, 70)
	seed(t, repo, time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), 140, 90, 80)

	stats, err := repo.GetStats(ctx, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	assert.InDelta(t, 130.0, stats.AvgSystolic, 1e-9)
	assert.InDelta(t, 75.0, stats.AvgPulse, 1e-9)
	assert.Equal(t, 120, stats.MinSystolic)
	assert.Equal(t, 90, stats.MaxDiastolic)
}

func TestReadingRepositoryStorageError(t *testing.T) {
	db := newTestDB(t)
	repo := NewReadingRepository(db)
	require.NoError(t, db.Migrator().DropTable(&models.Reading{}))

	_, err := repo.ListAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrStorage))
}

func TestScanRepository(t *testing.T) {
	repo := NewScanRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	id := uint(7)
	logs := []*models.ScanLog{
		{ScannedAt: now.Add(-time.Minute), Engine: "tesseract", Outcome: models.ScanNoMatch, Payload: datatypes.JSON(`{"text":"hello"}`)},
		{ScannedAt: now, Engine: "tesseract", Format: "slash", Outcome: models.ScanStored, ReadingID: &id, Payload: datatypes.JSON(`{"text":"120/80 70"}`)},
	}
	for _, l := range logs {
		require.NoError(t, repo.Create(ctx, l))
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	last, err := repo.GetLastN(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, models.ScanStored, last[0].Outcome)
	require.NotNil(t, last[0].ReadingID)
	assert.Equal(t, id, *last[0].ReadingID)

	byOutcome, err := repo.CountByOutcome(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{models.ScanStored: 1, models.ScanNoMatch: 1}, byOutcome)
}

func TestCacheRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewCacheRepository(client)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))
	val, found, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)

	n, err := repo.GetInt(ctx, "counter")
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	type payload struct{ A int }
	require.NoError(t, repo.SetJSON(ctx, "j", payload{A: 3}, 0))
	var p payload
	found, err = repo.GetJSON(ctx, "j", &p)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, p.A)

	require.NoError(t, repo.Set(ctx, "bad", []byte("{"), 0))
	_, err = repo.GetJSON(ctx, "bad", &p)
	assert.Error(t, err)
}
