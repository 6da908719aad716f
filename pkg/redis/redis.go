package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func Connect(ctx context.Context, config Config, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr(),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	version := "unknown"
	if stats, err := GetStats(ctx, client); err != nil {
		log.Warn("failed to get redis info", zap.Error(err))
	} else if v, ok := stats["redis_version"]; ok {
		version = v
	}
	log.Info("redis connected", zap.String("addr", config.Addr()), zap.String("version", version))

	return client, nil
}

var targetMetrics = map[string]bool{
	"redis_version":              true,
	"connected_clients":          true,
	"used_memory_human":          true,
	"used_memory_peak_human":     true,
	"total_connections_received": true,
	"total_commands_processed":   true,
	"keyspace_hits":              true,
	"keyspace_misses":            true,
	"uptime_in_seconds":          true,
}

// GetStats returns a subset of INFO fields.
func GetStats(ctx context.Context, client *redis.Client) (map[string]string, error) {
	info, err := client.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	return parseInfo(info), nil
}

func parseInfo(info string) map[string]string {
	stats := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if found && targetMetrics[key] {
			stats[key] = value
		}
	}
	return stats
}
