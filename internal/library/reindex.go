package library

import (
	"context"
	"fmt"
	"time"

	"github.com/franz/music-catalog/internal/util"
)

// ReindexResult describes a completed rebuild
type ReindexResult struct {
	Documents  int           `json:"documents"`
	Terms      int           `json:"terms"`
	Generation uint64        `json:"generation"`
	Duration   time.Duration `json:"duration"`
}

// Reindex rebuilds the search index and recommendation cache from the
// catalog and swaps them in. This is the recovery path after the indices
// are reported inconsistent. The build runs without holding the lock; a
// write committed meanwhile forces one retry, then ErrStaleSnapshot.
func (l *Library) Reindex(ctx context.Context) (*ReindexResult, error) {
	start := time.Now()
	res, err := util.RetryWithBackoff(util.SnapshotRetryConfig(), func() (*ReindexResult, error) {
		return l.reindexOnce(ctx)
	}, "reindex")
	duration := time.Since(start)

	if err != nil {
		l.events.LogReindex(0, 0, l.Generation(), duration, err)
		return nil, err
	}
	res.Duration = duration
	l.events.LogReindex(res.Documents, 0, res.Generation, duration, nil)
	util.InfoLog("Reindexed %d documents in %v", res.Documents, duration.Round(time.Millisecond))
	return res, nil
}

func (l *Library) reindexOnce(ctx context.Context) (*ReindexResult, error) {
	l.mu.RLock()
	snap := l.graph.Snapshot()
	gen := l.gen
	l.mu.RUnlock()

	if err := snap.Check(); err != nil {
		return nil, fmt.Errorf("catalog failed integrity check, indices cannot be rebuilt: %w", err)
	}

	built, err := l.coord.Build(ctx, snap)
	if err != nil {
		return nil, err
	}

	if l.beforeCommit != nil {
		l.beforeCommit()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return nil, fmt.Errorf("reindex at generation %d, catalog at %d: %w", gen, l.gen, util.ErrStaleSnapshot)
	}
	l.coord.Swap(built)

	stats := l.coord.Stats()
	return &ReindexResult{Documents: stats.Documents, Terms: stats.Terms, Generation: l.gen}, nil
}

// Verify checks the catalog's referential integrity and compares the live
// indices with what the catalog implies. Any divergence is returned as
// ErrInconsistent and queries fail until Reindex.
func (l *Library) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.graph.Check(); err != nil {
		l.coord.MarkInconsistent(err)
		l.events.LogInconsistent(l.gen, err)
		return err
	}
	if err := l.coord.Verify(l.graph, l.recommendSnapshot()); err != nil {
		l.events.LogInconsistent(l.gen, err)
		return err
	}
	return nil
}

// Consistent returns nil, or the error that marked the indices inconsistent
func (l *Library) Consistent() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.coord.Consistent()
}
