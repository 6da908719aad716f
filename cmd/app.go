package main

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bptracker/internal/cache"
	"bptracker/internal/config"
	"bptracker/internal/logger"
	"bptracker/internal/repository"
	"bptracker/pkg/database"
	"bptracker/pkg/redis"
)

// app holds the shared dependencies of the subcommands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db          *gorm.DB
	redisClient *goredis.Client
	reportCache *cache.ReportCache

	readings repository.ReadingRepository
	scans    repository.ScanRepository
}

func loadApp() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "bptracker")
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &app{cfg: cfg, logger: log}, nil
}

// connect opens the database and, when enabled, redis.
func (a *app) connect(ctx context.Context, withRedis bool) error {
	db, err := database.Connect(a.cfg.DB, a.logger, a.cfg.App.Debug)
	if err != nil {
		return err
	}
	a.db = db
	a.readings = repository.NewReadingRepository(db)
	a.scans = repository.NewScanRepository(db)

	if !withRedis || !a.cfg.Redis.Enabled {
		return nil
	}

	client, err := redis.Connect(ctx, a.cfg.Redis.Config, a.logger)
	if err != nil {
		// The report cache is optional; run uncached rather than fail.
		a.logger.Warn("redis unavailable, report cache disabled", zap.Error(err))
		return nil
	}
	a.redisClient = client
	a.reportCache = cache.NewReportCache(repository.NewCacheRepository(client), a.cfg.Redis.ReportTTL)
	return nil
}

func (a *app) close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
