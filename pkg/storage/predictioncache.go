package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// CachedPrediction is what the hot cache keeps per symptom vector.
type CachedPrediction struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
}

// PredictionCache keeps recent classifier outputs in Redis keyed by model version and
// encoded symptom vector, so repeat symptom sets skip inference.
type PredictionCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewPredictionCache(client *redis.Client, prefix string, ttl time.Duration) *PredictionCache {
	if prefix == "" {
		prefix = "prediction"
	}
	return &PredictionCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *PredictionCache) key(modelVersion, vectorKey string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, modelVersion, vectorKey)
}

// Get reports a miss with ok=false and a nil error.
func (c *PredictionCache) Get(ctx context.Context, modelVersion, vectorKey string) (CachedPrediction, bool, error) {
	key := c.key(modelVersion, vectorKey)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedPrediction{}, false, nil
	}
	if err != nil {
		return CachedPrediction{}, false, err
	}

	var pred CachedPrediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return CachedPrediction{}, false, fmt.Errorf("decode cached prediction %s: %w", key, err)
	}
	return pred, true, nil
}

func (c *PredictionCache) Set(ctx context.Context, modelVersion, vectorKey string, pred CachedPrediction) error {
	data, err := json.Marshal(pred)
	if err != nil {
		return err
	}

	key := c.key(modelVersion, vectorKey)
	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Caching prediction")

	return c.client.Set(ctx, key, data, c.ttl).Err()
}
