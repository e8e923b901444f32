package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const retentionPollInterval = 1 * time.Hour

type transcriptPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionPruner deletes transcript rows older than the retention window.
type RetentionPruner struct {
	repo      transcriptPruner
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
}

func NewRetentionPruner(repo transcriptPruner, retention time.Duration) *RetentionPruner {
	return &RetentionPruner{
		repo:      repo,
		retention: retention,
		interval:  retentionPollInterval,
		stopChan:  make(chan struct{}),
	}
}

func (p *RetentionPruner) Start() {
	if p.repo == nil || p.retention <= 0 {
		return
	}

	go p.loop()

	log.Info().Dur("retention", p.retention).Msg("transcript retention pruner started")
}

func (p *RetentionPruner) Stop() {
	select {
	case <-p.stopChan:
		return
	default:
		close(p.stopChan)
	}
}

func (p *RetentionPruner) loop() {
	// Run on startup as well as by interval.
	p.prune(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.prune(context.Background(), time.Now().UTC())
		}
	}
}

func (p *RetentionPruner) prune(ctx context.Context, now time.Time) {
	deleted, err := p.repo.DeleteOlderThan(ctx, retentionCutoff(now, p.retention))
	if err != nil {
		log.Error().Err(err).Msg("retention: failed to prune transcript")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("retention: pruned transcript rows")
	}
}

func retentionCutoff(now time.Time, retention time.Duration) time.Time {
	return now.Add(-retention).UTC()
}
