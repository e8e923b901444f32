package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"relaychat-backend/internal/models"
)

// QueueSink hands transcript entries to the worker pool instead of writing them
// on the request path.
type QueueSink struct {
	redis *redis.Client
}

func NewQueueSink(redisClient *redis.Client) *QueueSink {
	return &QueueSink{redis: redisClient}
}

func (s *QueueSink) Record(ctx context.Context, entry models.TranscriptEntry) error {
	data, err := json.Marshal(Job{Entry: entry})
	if err != nil {
		return fmt.Errorf("failed to encode transcript job: %w", err)
	}
	return s.redis.RPush(ctx, TranscriptQueue, string(data)).Err()
}
