package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"

	"bptracker/internal/ocr"
	"bptracker/pkg/database"
	"bptracker/pkg/redis"
)

type Config struct {
	App struct {
		Port            string
		Debug           bool
		FrontendURL     string
		Timezone        string
		MaxUploadSize   string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	DB    database.Config
	Redis struct {
		redis.Config
		Enabled   bool
		ReportTTL time.Duration
	}
	OCR struct {
		ocr.Config
		Timeout time.Duration
	}
	RateLimit struct {
		RequestsPerSecond int
		Burst             int
	}

	location      *time.Location
	maxUploadSize int64
}

func Load() *Config {
	cfg := &Config{}

	// App
	cfg.App.Port = getEnv("PORT", "5000")
	cfg.App.Debug = getEnvAsBool("DEBUG", false)
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")
	cfg.App.Timezone = getEnv("APP_TIMEZONE", "Local")
	cfg.App.MaxUploadSize = getEnv("MAX_UPLOAD_SIZE", "10MB")
	cfg.App.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second)
	cfg.App.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)
	cfg.App.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	// Log
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// DB
	cfg.DB.Driver = getEnv("DB_DRIVER", database.DriverPostgres)
	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.DB.DBName = getEnv("DB_NAME", "bptracker")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.DB.SQLitePath = getEnv("DB_SQLITE_PATH", "data.db")
	cfg.DB.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DB.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DB.ConnMaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour)

	// Redis
	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnv("REDIS_PORT", "6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", 0)
	cfg.Redis.ReportTTL = getEnvAsDuration("REPORT_CACHE_TTL", time.Hour)

	// OCR
	cfg.OCR.Engine = getEnv("OCR_ENGINE", ocr.EngineTesseract)
	cfg.OCR.TesseractPath = getEnv("TESSERACT_PATH", "tesseract")
	cfg.OCR.Language = getEnv("OCR_LANGUAGE", "eng")
	cfg.OCR.PageSegMode = getEnv("TESSERACT_PSM", "")
	cfg.OCR.CredentialsJSON = getEnv("GOOGLE_CREDENTIALS", "")
	cfg.OCR.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	cfg.OCR.Timeout = getEnvAsDuration("OCR_TIMEOUT", 30*time.Second)

	// Rate Limit
	cfg.RateLimit.RequestsPerSecond = getEnvAsInt("RATE_LIMIT_RPS", 10)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", 20)

	return cfg
}

// Validate checks enumerations and resolves derived values. It must be
// called before Location or MaxUploadSizeBytes.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case database.DriverPostgres, database.DriverMySQL, database.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}

	switch c.OCR.Engine {
	case ocr.EngineTesseract, ocr.EngineVision:
	default:
		return fmt.Errorf("unsupported OCR_ENGINE %q", c.OCR.Engine)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL %q", c.Log.Level)
	}

	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	c.location = loc

	size, err := units.FromHumanSize(c.App.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	c.maxUploadSize = size

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}

	return nil
}

// Location is the zone used to interpret calendar dates.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) MaxUploadSizeBytes() int64 {
	return c.maxUploadSize
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if dur, err := time.ParseDuration(value); err == nil {
			return dur
		}
	}
	return defaultValue
}
