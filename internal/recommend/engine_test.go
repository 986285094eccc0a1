package recommend

import (
	"context"
	"math"
	"testing"

	"github.com/franz/music-catalog/internal/analysis"
)

func set(ids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Tracks: []int64{1, 2, 3, 4, 5},
		Vectors: map[int64]analysis.Vector{
			1: analysis.NewVector([]float64{1, 0}, 120, -7),
			2: analysis.NewVector([]float64{1, 0}, 121, -7),
			3: analysis.NewVector([]float64{-1, 0}, 90, -9),
		},
		Membership: map[int64]map[string]struct{}{
			1: set("p1", "p2"),
			4: set("p1"),
		},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreSymmetric(t *testing.T) {
	e := NewEngine(Options{WeightAcoustic: 0.3, StalenessThreshold: 1})
	snap := testSnapshot()

	for _, a := range snap.Tracks {
		for _, b := range snap.Tracks {
			if e.Score(snap, a, b) != e.Score(snap, b, a) {
				t.Errorf("Score(%d,%d) != Score(%d,%d)", a, b, b, a)
			}
		}
	}
}

func TestScoreComponents(t *testing.T) {
	e := NewEngine(DefaultOptions())
	snap := testSnapshot()

	tests := []struct {
		name string
		a, b int64
		want float64
	}{
		// identical direction, no shared playlists
		{"acoustic only", 1, 2, 0.5 * 1},
		// opposite direction maps to 0
		{"opposite vectors", 1, 3, 0},
		// no vector on 4: only co-occurrence, 1 shared of 2
		{"co-occurrence only", 1, 4, 0.5 * 0.5},
		{"no signal", 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Score(snap, tt.a, tt.b); !approx(got, tt.want) {
				t.Errorf("Score(%d,%d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestComputeRanking(t *testing.T) {
	e := NewEngine(DefaultOptions())
	snap := testSnapshot()

	res, err := e.Compute(context.Background(), snap, 1, 10)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	// 2 scores 0.5, 4 scores 0.25; 3 scores 0 and 5 has no signal
	got := res.Recommendations
	if len(got) != 2 || got[0].TrackID != 2 || got[1].TrackID != 4 {
		t.Fatalf("recommendations = %+v", got)
	}
	for _, r := range got {
		if r.TrackID == 1 {
			t.Error("a track must never recommend itself")
		}
	}

	limited, _ := e.Compute(context.Background(), snap, 1, 1)
	if len(limited.Recommendations) != 1 {
		t.Errorf("k=1 returned %d results", len(limited.Recommendations))
	}
}

func TestComputeWithoutSignal(t *testing.T) {
	e := NewEngine(DefaultOptions())
	res, err := e.Compute(context.Background(), testSnapshot(), 5, 10)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(res.Recommendations) != 0 {
		t.Errorf("track without signal should get no recommendations, got %+v", res.Recommendations)
	}
}

func TestCommitAndInvalidate(t *testing.T) {
	e := NewEngine(DefaultOptions())
	snap := testSnapshot()

	res, _ := e.Compute(context.Background(), snap, 1, 10)
	if len(res.Fresh) == 0 {
		t.Fatal("first query should compute edges")
	}
	e.Commit(res)

	again, _ := e.Compute(context.Background(), snap, 1, 10)
	if len(again.Fresh) != 0 {
		t.Errorf("cached edges should be reused, recomputed %d", len(again.Fresh))
	}

	e.Invalidate(2)
	if _, ok := e.Cached(1, 2); ok {
		t.Error("edge 1-2 should be dropped with track 2")
	}
	if _, ok := e.Cached(4, 1); !ok {
		t.Error("edge 1-4 does not touch track 2 and should stay cached")
	}

	after, _ := e.Compute(context.Background(), snap, 1, 10)
	if _, ok := after.Fresh[MakePair(1, 2)]; !ok || len(after.Fresh) != 1 {
		t.Errorf("only the invalidated edge should be recomputed, got %v", after.Fresh)
	}
}

func TestMembershipStalenessThreshold(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		shifts    int
		dropped   bool
	}{
		{"default drops immediately", 1, 1, true},
		{"below threshold keeps edge", 3, 2, false},
		{"reaching threshold drops", 3, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Options{WeightAcoustic: 0.5, StalenessThreshold: tt.threshold})
			res, _ := e.Compute(context.Background(), testSnapshot(), 1, 10)
			e.Commit(res)

			for i := 0; i < tt.shifts; i++ {
				e.NoteMembershipShift([]int64{4})
			}
			_, cached := e.Cached(1, 4)
			if cached == tt.dropped {
				t.Errorf("after %d shifts with threshold %d: cached=%v", tt.shifts, tt.threshold, cached)
			}
		})
	}
}

func TestComputeHonorsCancellation(t *testing.T) {
	e := NewEngine(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Compute(ctx, testSnapshot(), 1, 10); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestStaleEdges(t *testing.T) {
	e := NewEngine(DefaultOptions())
	snap := testSnapshot()
	res, _ := e.Compute(context.Background(), snap, 1, 10)
	e.Commit(res)

	if stale := e.Stale(snap); len(stale) != 0 {
		t.Fatalf("fresh cache reported stale edges: %v", stale)
	}

	// Track 4 leaves the catalog without an invalidation
	changed := testSnapshot()
	changed.Tracks = []int64{1, 2, 3, 5}
	stale := e.Stale(changed)
	if len(stale) != 1 || stale[0] != MakePair(1, 4) {
		t.Errorf("Stale = %v, want [1-4]", stale)
	}
}
