package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/playlist"
	"github.com/franz/music-catalog/internal/util"
)

// MemoryRepository is an in-process Repository for tests and embedded use
type MemoryRepository struct {
	mu sync.Mutex

	artists   map[int64]*Artist
	albums    map[int64]*Album
	tracks    map[int64]*Track
	vectors   map[int64]analysis.Vector
	playlists map[string]*playlist.Playlist
	counters  Counters

	// FailCommit, when set, is returned by the next Commit, which then
	// discards its writes
	FailCommit error
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		artists:   make(map[int64]*Artist),
		albums:    make(map[int64]*Album),
		tracks:    make(map[int64]*Track),
		vectors:   make(map[int64]analysis.Vector),
		playlists: make(map[string]*playlist.Playlist),
	}
}

// Load returns a copy of everything stored
func (r *MemoryRepository) Load(ctx context.Context) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := &State{Vectors: make(map[int64]analysis.Vector, len(r.vectors)), Counters: r.counters}
	for _, id := range sortedKeys(r.artists) {
		state.Artists = append(state.Artists, r.artists[id].Clone())
	}
	for _, id := range sortedKeys(r.albums) {
		state.Albums = append(state.Albums, r.albums[id].Clone())
	}
	for _, id := range sortedKeys(r.tracks) {
		state.Tracks = append(state.Tracks, r.tracks[id].Clone())
	}
	for id, v := range r.vectors {
		state.Vectors[id] = v
	}

	ids := make([]string, 0, len(r.playlists))
	for id := range r.playlists {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		state.Playlists = append(state.Playlists, r.playlists[id].Clone())
	}
	return state, nil
}

// GetArtist implements Repository
func (r *MemoryRepository) GetArtist(ctx context.Context, id int64) (*Artist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artists[id]
	if !ok {
		return nil, fmt.Errorf("artist %d: %w", id, util.ErrNotFound)
	}
	return a.Clone(), nil
}

// GetAlbum implements Repository
func (r *MemoryRepository) GetAlbum(ctx context.Context, id int64) (*Album, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.albums[id]
	if !ok {
		return nil, fmt.Errorf("album %d: %w", id, util.ErrNotFound)
	}
	return a.Clone(), nil
}

// GetTrack implements Repository
func (r *MemoryRepository) GetTrack(ctx context.Context, id int64) (*Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tracks[id]
	if !ok {
		return nil, fmt.Errorf("track %d: %w", id, util.ErrNotFound)
	}
	return t.Clone(), nil
}

// GetAnalysis implements Repository
func (r *MemoryRepository) GetAnalysis(ctx context.Context, trackID int64) (analysis.Vector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vectors[trackID]
	if !ok {
		return analysis.Vector{}, fmt.Errorf("analysis for track %d: %w", trackID, util.ErrNotFound)
	}
	return v, nil
}

// GetPlaylist implements Repository
func (r *MemoryRepository) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.playlists[id]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", id, util.ErrNotFound)
	}
	return p.Clone(), nil
}

// Begin starts a buffered transaction
func (r *MemoryRepository) Begin(ctx context.Context) (Tx, error) {
	return &memoryTx{repo: r}, nil
}

// Close implements Repository
func (r *MemoryRepository) Close() error {
	return nil
}

var errTxDone = errors.New("transaction already finished")

// memoryTx buffers writes as closures replayed on commit
type memoryTx struct {
	repo *MemoryRepository
	ops  []func(r *MemoryRepository)
	done bool
}

func (tx *memoryTx) push(op func(r *MemoryRepository)) error {
	if tx.done {
		return errTxDone
	}
	tx.ops = append(tx.ops, op)
	return nil
}

func (tx *memoryTx) PutArtist(ctx context.Context, a *Artist) error {
	a = a.Clone()
	return tx.push(func(r *MemoryRepository) { r.artists[a.ID] = a })
}

func (tx *memoryTx) DeleteArtist(ctx context.Context, id int64) error {
	return tx.push(func(r *MemoryRepository) { delete(r.artists, id) })
}

func (tx *memoryTx) PutAlbum(ctx context.Context, a *Album) error {
	a = a.Clone()
	return tx.push(func(r *MemoryRepository) { r.albums[a.ID] = a })
}

func (tx *memoryTx) DeleteAlbum(ctx context.Context, id int64) error {
	return tx.push(func(r *MemoryRepository) { delete(r.albums, id) })
}

func (tx *memoryTx) PutTrack(ctx context.Context, t *Track) error {
	t = t.Clone()
	return tx.push(func(r *MemoryRepository) { r.tracks[t.ID] = t })
}

func (tx *memoryTx) DeleteTrack(ctx context.Context, id int64) error {
	return tx.push(func(r *MemoryRepository) { delete(r.tracks, id) })
}

func (tx *memoryTx) PutAnalysis(ctx context.Context, trackID int64, v analysis.Vector) error {
	return tx.push(func(r *MemoryRepository) { r.vectors[trackID] = v })
}

func (tx *memoryTx) DeleteAnalysis(ctx context.Context, trackID int64) error {
	return tx.push(func(r *MemoryRepository) { delete(r.vectors, trackID) })
}

func (tx *memoryTx) PutPlaylist(ctx context.Context, p *playlist.Playlist) error {
	p = p.Clone()
	return tx.push(func(r *MemoryRepository) { r.playlists[p.ID] = p })
}

func (tx *memoryTx) DeletePlaylist(ctx context.Context, id string) error {
	return tx.push(func(r *MemoryRepository) { delete(r.playlists, id) })
}

func (tx *memoryTx) PutCounters(ctx context.Context, c Counters) error {
	return tx.push(func(r *MemoryRepository) { r.counters = c })
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true

	tx.repo.mu.Lock()
	defer tx.repo.mu.Unlock()
	if err := tx.repo.FailCommit; err != nil {
		tx.repo.FailCommit = nil
		return err
	}
	for _, op := range tx.ops {
		op(tx.repo)
	}
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.ops = nil
	return nil
}
