package database

import (
	"context"
	"fmt"
	"time"

	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// OpenRedis connects and pings. The client is returned even when the ping fails so
// callers can decide whether a cold cache is acceptable.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Log.WithError(err).Error("Failed to connect to Redis")
		return client, err
	}

	logger.Log.Info("Connected to Redis")
	return client, nil
}
