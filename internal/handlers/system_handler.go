package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bptracker/internal/models"
	"bptracker/internal/repository"
	"bptracker/pkg/database"
	"bptracker/pkg/redis"
)

type SystemHandler struct {
	db          *gorm.DB
	redisClient *goredis.Client
	readings    repository.ReadingRepository
	scans       repository.ScanRepository
	ocrEngine   string
	version     string
	startedAt   time.Time
	logger      *zap.Logger
}

// NewSystemHandler builds the health and stats endpoints. redisClient may
// be nil when caching is disabled.
func NewSystemHandler(
	db *gorm.DB,
	redisClient *goredis.Client,
	readings repository.ReadingRepository,
	scans repository.ScanRepository,
	ocrEngine string,
	version string,
	logger *zap.Logger,
) *SystemHandler {
	return &SystemHandler{
		db:          db,
		redisClient: redisClient,
		readings:    readings,
		scans:       scans,
		ocrEngine:   ocrEngine,
		version:     version,
		startedAt:   time.Now(),
		logger:      logger.With(zap.String("component", "system_handler")),
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Timestamp string            `json:"timestamp"`
}

// StatsResponse is the body of GET /system/stats.
type StatsResponse struct {
	Database struct {
		Readings int64                    `json:"readings"`
		Scans    int64                    `json:"scans"`
		Outcomes map[string]int64         `json:"scan_outcomes"`
		Vitals   *repository.ReadingStats `json:"vitals"`
	} `json:"database"`
	Redis     map[string]string `json:"redis,omitempty"`
	OCREngine string            `json:"ocr_engine"`
	Uptime    string            `json:"uptime"`
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Services:  map[string]string{"ocr": h.ocrEngine},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		resp.Services["database"] = "unavailable"
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		resp.Services["database"] = "connected"
	}

	switch {
	case h.redisClient == nil:
		resp.Services["redis"] = "disabled"
	case h.redisClient.Ping(ctx).Err() != nil:
		resp.Services["redis"] = "unavailable"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	default:
		resp.Services["redis"] = "connected"
	}

	c.JSON(status, resp)
}

func (h *SystemHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	var resp StatsResponse
	resp.OCREngine = h.ocrEngine
	resp.Uptime = time.Since(h.startedAt).Truncate(time.Second).String()

	var err error
	if resp.Database.Readings, err = h.readings.Count(ctx); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if resp.Database.Vitals, err = h.readings.GetStats(ctx, models.DateRange{}); err != nil {
		respondError(c, h.logger, err)
		return
	}

	// Scan logs are diagnostics; their absence does not fail the request.
	if n, err := h.scans.Count(ctx); err == nil {
		resp.Database.Scans = n
	} else {
		h.logger.Warn("failed to count scans", zap.Error(err))
	}
	if outcomes, err := h.scans.CountByOutcome(ctx); err == nil {
		resp.Database.Outcomes = outcomes
	} else {
		h.logger.Warn("failed to count scan outcomes", zap.Error(err))
	}

	if h.redisClient != nil {
		stats, err := redis.GetStats(ctx, h.redisClient)
		if err != nil {
			h.logger.Warn("failed to get redis stats", zap.Error(err))
		}
		resp.Redis = stats
	}

	c.JSON(http.StatusOK, resp)
}
