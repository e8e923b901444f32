package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"relaychat-backend/internal/models"
)

const (
	TranscriptQueue = "queue:transcript"
	maxAttempts     = 3
	lockTTL         = time.Minute
	popTimeout      = 30 * time.Second
)

// Job is the queued form of a transcript entry.
type Job struct {
	Entry    models.TranscriptEntry `json:"entry"`
	Attempts int                    `json:"attempts"`
}

type transcriptWriter interface {
	Record(ctx context.Context, entry models.TranscriptEntry) error
}

// Pool drains the transcript queue into the message store.
type Pool struct {
	redis       *redis.Client
	store       transcriptWriter
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, store transcriptWriter, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		store:       store,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Info().Int("workers", p.workerCount).Msg("transcript workers started")
}

func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, popTimeout, TranscriptQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		job, err := decodeJob(result[1])
		if err != nil {
			log.Error().Err(err).Int("worker", id).Msg("dropping malformed transcript job")
			continue
		}

		lockKey := fmt.Sprintf("transcript_lock:%s", job.Entry.ID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue // Another worker has this entry
		}

		if err := p.store.Record(ctx, job.Entry); err != nil {
			p.handleFailure(ctx, job, err)
		}

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) handleFailure(ctx context.Context, job *Job, err error) {
	job.Attempts++

	if job.Attempts >= maxAttempts {
		log.Error().Err(err).Str("entry_id", job.Entry.ID.String()).Msg("transcript entry dropped after retries")
		return
	}

	log.Warn().Err(err).Str("entry_id", job.Entry.ID.String()).Int("attempt", job.Attempts).Msg("transcript write failed; retrying")

	data, _ := json.Marshal(job)
	time.AfterFunc(retryBackoff(job.Attempts), func() {
		p.redis.RPush(context.Background(), TranscriptQueue, string(data))
	})
}

func decodeJob(raw string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	if job.Entry.ID == uuid.Nil {
		return nil, fmt.Errorf("job has no entry id")
	}
	return &job, nil
}

func retryBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
