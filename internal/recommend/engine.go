// Package recommend answers "similar to X" queries over catalog tracks.
//
// Similarity between two tracks is a weighted sum of acoustic similarity
// (analysis vectors) and playlist co-occurrence:
//
//	sim(a, b) = w * acoustic(a, b) + (1 - w) * cooc(a, b)
//	cooc(a, b) = |P(a) ∩ P(b)| / |P(a) ∪ P(b)|
//
// where P(x) is the set of playlists with a live entry for x. A track
// without a usable vector contributes only the co-occurrence term.
//
// Edges are computed lazily on first query, cached by unordered pair and
// dropped when either endpoint's vector or playlist membership changes.
package recommend

import (
	"context"
	"sort"
	"sync"

	"github.com/franz/music-catalog/internal/analysis"
)

const (
	// DefaultWeightAcoustic balances the two signals equally
	DefaultWeightAcoustic = 0.5

	// DefaultStalenessThreshold invalidates on every membership shift
	DefaultStalenessThreshold = 1
)

// Options configures an Engine
type Options struct {
	WeightAcoustic float64

	// Membership shifts a track absorbs before its edges are dropped
	StalenessThreshold int
}

// DefaultOptions returns the default weighting
func DefaultOptions() Options {
	return Options{
		WeightAcoustic:     DefaultWeightAcoustic,
		StalenessThreshold: DefaultStalenessThreshold,
	}
}

// Snapshot is a consistent copy of the inputs the engine scores against
type Snapshot struct {
	Tracks     []int64 // live track ids, ascending
	Vectors    map[int64]analysis.Vector
	Membership map[int64]map[string]struct{}
}

// Recommendation is one ranked result
type Recommendation struct {
	TrackID int64   `json:"track_id"`
	Score   float64 `json:"score"`
}

// Pair is an unordered track pair, stored with A < B
type Pair struct {
	A, B int64
}

// MakePair orders two ids into a Pair
func MakePair(x, y int64) Pair {
	if x > y {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Result is a computed ranking plus the edges it had to compute
type Result struct {
	Recommendations []Recommendation
	Fresh           map[Pair]float64
}

// Engine holds the edge cache
type Engine struct {
	weight    float64
	threshold int

	mu        sync.RWMutex
	edges     map[Pair]float64
	neighbors map[int64]map[int64]struct{}
	shifts    map[int64]int
}

// NewEngine creates an engine with an empty cache
func NewEngine(opts Options) *Engine {
	if opts.StalenessThreshold < 1 {
		opts.StalenessThreshold = DefaultStalenessThreshold
	}
	return &Engine{
		weight:    opts.WeightAcoustic,
		threshold: opts.StalenessThreshold,
		edges:     make(map[Pair]float64),
		neighbors: make(map[int64]map[int64]struct{}),
		shifts:    make(map[int64]int),
	}
}

// Score computes sim(a, b) against a snapshot without touching the cache.
// Arguments are ordered first so Score(a, b) and Score(b, a) are identical.
func (e *Engine) Score(snap *Snapshot, a, b int64) float64 {
	p := MakePair(a, b)
	return similarity(e.weight, snap, p.A, p.B)
}

func similarity(w float64, snap *Snapshot, a, b int64) float64 {
	var s float64
	va, okA := snap.Vectors[a]
	vb, okB := snap.Vectors[b]
	if okA && okB {
		if acoustic, ok := analysis.Similarity(va, vb); ok {
			s += w * acoustic
		}
	}
	return s + (1-w)*jaccard(snap.Membership[a], snap.Membership[b])
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for id := range a {
		if _, ok := b[id]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func hasSignal(snap *Snapshot, id int64) bool {
	if _, ok := snap.Vectors[id]; ok {
		return true
	}
	return len(snap.Membership[id]) > 0
}

// Compute ranks up to k tracks most similar to trackID, highest score first,
// ties by track id. Cached edges are reused; missing ones are computed
// against the snapshot and returned in Result.Fresh for the caller to
// Commit once it knows the snapshot is still current.
// Tracks with neither signal and zero scores are never returned.
func (e *Engine) Compute(ctx context.Context, snap *Snapshot, trackID int64, k int) (*Result, error) {
	res := &Result{Fresh: make(map[Pair]float64)}
	if k <= 0 || !hasSignal(snap, trackID) {
		return res, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for i, other := range snap.Tracks {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if other == trackID || !hasSignal(snap, other) {
			continue
		}

		p := MakePair(trackID, other)
		score, cached := e.edges[p]
		if !cached {
			score = similarity(e.weight, snap, p.A, p.B)
			res.Fresh[p] = score
		}
		if score > 0 {
			res.Recommendations = append(res.Recommendations, Recommendation{TrackID: other, Score: score})
		}
	}

	sort.Slice(res.Recommendations, func(i, j int) bool {
		a, b := res.Recommendations[i], res.Recommendations[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.TrackID < b.TrackID
	})
	if len(res.Recommendations) > k {
		res.Recommendations = res.Recommendations[:k]
	}
	return res, nil
}

// Commit caches the edges a Compute produced. The caller guarantees no
// invalidation happened since the snapshot was taken.
func (e *Engine) Commit(res *Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for p, score := range res.Fresh {
		e.edges[p] = score
		link(e.neighbors, p.A, p.B)
		link(e.neighbors, p.B, p.A)
	}
}

func link(m map[int64]map[int64]struct{}, from, to int64) {
	set := m[from]
	if set == nil {
		set = make(map[int64]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// Cached returns the cached edge for a pair
func (e *Engine) Cached(a, b int64) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.edges[MakePair(a, b)]
	return s, ok
}

// Edges returns the number of cached edges
func (e *Engine) Edges() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.edges)
}

// Invalidate drops every cached edge touching a track
func (e *Engine) Invalidate(trackID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidate(trackID)
}

func (e *Engine) invalidate(trackID int64) {
	for other := range e.neighbors[trackID] {
		delete(e.edges, MakePair(trackID, other))
		delete(e.neighbors[other], trackID)
		if len(e.neighbors[other]) == 0 {
			delete(e.neighbors, other)
		}
	}
	delete(e.neighbors, trackID)
	delete(e.shifts, trackID)
}

// NoteMembershipShift records that the tracks' playlist membership changed.
// A track's edges are dropped once its shifts reach the staleness threshold.
// Returns the tracks invalidated.
func (e *Engine) NoteMembershipShift(tracks []int64) []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dropped []int64
	for _, id := range tracks {
		e.shifts[id]++
		if e.shifts[id] >= e.threshold {
			e.invalidate(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Stale returns cached edges the snapshot contradicts: edges touching a
// track that no longer exists and, when every membership shift invalidates
// immediately, edges whose score has moved.
func (e *Engine) Stale(snap *Snapshot) []Pair {
	live := make(map[int64]bool, len(snap.Tracks))
	for _, id := range snap.Tracks {
		live[id] = true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Pair
	for p, score := range e.edges {
		if !live[p.A] || !live[p.B] {
			out = append(out, p)
			continue
		}
		if e.threshold == 1 && similarity(e.weight, snap, p.A, p.B) != score {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
