package library

import (
	"context"
	"strconv"

	"github.com/franz/music-catalog/internal/recommend"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/util"
)

// Search queries the full-text index. Hits are ordered by score, then by
// entity ref, so equal inputs always give equal output.
func (l *Library) Search(q search.Query) ([]search.Hit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.coord.Search(q)
}

// recommendSnapshot copies the recommender's inputs. Caller holds a lock.
func (l *Library) recommendSnapshot() *recommend.Snapshot {
	return &recommend.Snapshot{
		Tracks:     l.graph.TrackIDs(),
		Vectors:    l.graph.Vectors(),
		Membership: l.playlists.Membership(),
	}
}

// Recommend returns up to k tracks most similar to trackID. Missing edges
// are computed against a snapshot without holding the lock; if a writer
// commits meanwhile the computation is retried once before failing with
// ErrStaleSnapshot.
func (l *Library) Recommend(ctx context.Context, trackID int64, k int) ([]recommend.Recommendation, error) {
	return util.RetryWithBackoff(util.SnapshotRetryConfig(), func() ([]recommend.Recommendation, error) {
		return l.recommendOnce(ctx, trackID, k)
	}, "recommend")
}

func (l *Library) recommendOnce(ctx context.Context, trackID int64, k int) ([]recommend.Recommendation, error) {
	l.mu.RLock()
	if !l.graph.HasTrack(trackID) {
		l.mu.RUnlock()
		return nil, unknownTrack("recommend", trackID)
	}
	eng, err := l.coord.Engine()
	if err != nil {
		l.mu.RUnlock()
		return nil, err
	}
	snap := l.recommendSnapshot()
	gen := l.gen
	l.mu.RUnlock()

	res, err := eng.Compute(ctx, snap, trackID, k)
	if err != nil {
		return nil, err
	}

	if l.beforeCommit != nil {
		l.beforeCommit()
	}
	if len(res.Fresh) == 0 {
		return res.Recommendations, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return nil, &util.EntityError{Op: "recommend", Entity: "track", ID: strconv.FormatInt(trackID, 10), Err: util.ErrStaleSnapshot}
	}
	// A rebuild may have replaced the engine; its cache starts empty
	if current, err := l.coord.Engine(); err == nil && current == eng {
		eng.Commit(res)
	}
	return res.Recommendations, nil
}

// Score returns the similarity of two tracks. Score(a, b) == Score(b, a).
func (l *Library) Score(a, b int64) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, id := range []int64{a, b} {
		if !l.graph.HasTrack(id) {
			return 0, unknownTrack("score", id)
		}
	}
	eng, err := l.coord.Engine()
	if err != nil {
		return 0, err
	}
	return eng.Score(l.recommendSnapshot(), a, b), nil
}
