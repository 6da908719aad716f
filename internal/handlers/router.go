package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bptracker/internal/middleware"
)

type RouterConfig struct {
	Debug        bool
	AllowOrigins []string
	RateLimit    rate.Limit
	Burst        int
}

type Handlers struct {
	Readings *ReadingHandler
	Reports  *ReportHandler
	System   *SystemHandler
}

// NewRouter mounts every route at the root and again under /api/v1.
func NewRouter(h Handlers, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	if !cfg.Debug && cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(middleware.NewIPRateLimiter(cfg.RateLimit, cfg.Burst), logger))
	}

	for _, g := range []gin.IRoutes{r, r.Group("/api/v1")} {
		g.POST("/upload", h.Readings.Upload)
		g.POST("/add", h.Readings.Add)
		g.GET("/data", h.Readings.Data)
		g.GET("/summary", h.Readings.Summary)

		g.GET("/report", h.Reports.Report)
		g.GET("/export", h.Reports.Export)

		g.GET("/health", h.System.Health)
		g.GET("/system/stats", h.System.Stats)
	}

	return r
}
