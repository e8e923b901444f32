package services

import (
	"context"
	"testing"
	"time"
)

type stubPruner struct {
	cutoff time.Time
	calls  int
}

func (s *stubPruner) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.calls++
	s.cutoff = cutoff
	return 3, nil
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)

	cutoff := retentionCutoff(now, 48*time.Hour)
	expected := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	if !cutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, cutoff)
	}
}

func TestRetentionPruner_PruneUsesCutoff(t *testing.T) {
	repo := &stubPruner{}
	p := NewRetentionPruner(repo, 24*time.Hour)

	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	p.prune(context.Background(), now)

	if repo.calls != 1 {
		t.Fatalf("expected one delete call, got %d", repo.calls)
	}
	if !repo.cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", repo.cutoff)
	}
}

func TestRetentionPruner_StopIsIdempotent(t *testing.T) {
	p := NewRetentionPruner(&stubPruner{}, time.Hour)
	p.Stop()
	p.Stop()
}

func TestRetentionPruner_DisabledWithoutRepo(t *testing.T) {
	p := NewRetentionPruner(nil, time.Hour)
	p.Start()
	p.Stop()
}
