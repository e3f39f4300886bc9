package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/disease-prediction/platform/pkg/common/config"
	"github.com/disease-prediction/platform/pkg/common/logger"
	"github.com/disease-prediction/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

const (
	defaultRetryBackoff = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
)

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader       messageReader
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return newConsumer(reader)
}

func newConsumer(reader messageReader) *Consumer {
	return &Consumer{
		reader:       reader,
		retryBackoff: defaultRetryBackoff,
		maxBackoff:   defaultMaxBackoff,
	}
}

// Consume blocks until ctx is cancelled. A message whose handler fails is retried
// with backoff before the next one is fetched, so the group offset never moves past
// an unprocessed event. Undecodable messages are committed and skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	fetchBackoff := c.retryBackoff
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithField("retry_in", fetchBackoff.String()).Error("Failed to fetch message")
			if err := sleep(ctx, fetchBackoff); err != nil {
				return err
			}
			fetchBackoff = c.nextBackoff(fetchBackoff)
			continue
		}
		fetchBackoff = c.retryBackoff

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := c.handle(ctx, event, handler); err != nil {
			return err
		}
		c.commit(ctx, message)
	}
}

// handle retries the handler until it succeeds. It only returns ctx.Err().
func (c *Consumer) handle(ctx context.Context, event models.Event, handler EventHandler) error {
	backoff := c.retryBackoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id": event.ID,
			"attempt":  attempt,
			"retry_in": backoff.String(),
		}).Error("Failed to process event")
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = c.nextBackoff(backoff)
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to commit message")
	}
}

func (c *Consumer) nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > c.maxBackoff {
		return c.maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
