// Package library is the catalog handle callers own. It ties the entity
// graph, playlists, persistence and derived indices together behind one
// reader/writer lock.
//
// Every mutating call is one atomic unit: it is planned against the graph,
// written in a single repository transaction, and only then applied to the
// in-memory graph, playlists and indices. Readers never observe a partially
// applied mutation.
package library

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/config"
	"github.com/franz/music-catalog/internal/index"
	"github.com/franz/music-catalog/internal/playlist"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/util"
)

// Library is an open catalog
type Library struct {
	mu sync.RWMutex

	repo   catalog.Repository
	cfg    config.Config
	events *report.EventLogger

	graph     *catalog.Graph
	playlists *playlist.Manager
	coord     *index.Coordinator

	// incremented by every committed write
	gen uint64

	// runs after a snapshot computation, before its commit; tests use it
	// to race a writer against a reader
	beforeCommit func()
}

// Open loads the catalog from repo and builds the indices.
// events may be nil (report.NullLogger).
func Open(ctx context.Context, repo catalog.Repository, cfg config.Config, events *report.EventLogger) (*Library, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	graph := catalog.LoadGraph(state)
	if err := graph.Check(); err != nil {
		return nil, fmt.Errorf("stored catalog is corrupt: %w", err)
	}

	pm := playlist.NewManager()
	pm.Load(state.Playlists)

	l := &Library{
		repo:      repo,
		cfg:       cfg,
		events:    events,
		graph:     graph,
		playlists: pm,
		coord:     index.New(cfg.IndexOptions()),
	}

	built, err := l.coord.Build(ctx, graph)
	if err != nil {
		return nil, fmt.Errorf("failed to build indices: %w", err)
	}
	l.coord.Swap(built)

	stats := graph.Stats()
	util.DebugLog("Opened catalog: %d artists, %d albums, %d tracks, %d playlists",
		stats.Artists, stats.Albums, stats.Tracks, pm.Len())
	return l, nil
}

// Close releases the repository
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo.Close()
}

// Generation returns the number of writes committed since Open
func (l *Library) Generation() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gen
}

// commit persists and applies a planned batch. The caller holds the write
// lock. Returns the changes with their sequence numbers.
//
// Once the transaction commits the operation has succeeded: an index
// update that fails afterwards marks the indices inconsistent rather than
// failing the write.
func (l *Library) commit(ctx context.Context, op string, b *catalog.Batch) ([]catalog.Change, error) {
	if b.Empty() {
		return nil, nil
	}

	changes := l.coord.Begin(b.Changes)

	if err := l.persist(ctx, b); err != nil {
		l.coord.Abort(changes)
		l.events.LogError(op, "", err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	l.graph.Apply(b)
	for _, mut := range b.Playlists {
		l.playlists.Apply(mut)
	}
	l.gen++

	if err := l.coord.Apply(l.graph, changes); err != nil {
		l.events.LogInconsistent(l.gen, err)
	}
	l.events.LogChanges(changes, l.gen)

	util.DebugLog("%s: committed %d changes (generation %d)", op, len(changes), l.gen)
	return changes, nil
}

func (l *Library) persist(ctx context.Context, b *catalog.Batch) error {
	tx, err := l.repo.Begin(ctx)
	if err != nil {
		return err
	}
	if err := b.Write(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Stats summarizes the catalog and its indices
type Stats struct {
	Catalog    catalog.Stats `json:"catalog"`
	Playlists  int           `json:"playlists"`
	Index      index.Stats   `json:"index"`
	Generation uint64        `json:"generation"`
}

// Stats returns current counts
func (l *Library) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		Catalog:    l.graph.Stats(),
		Playlists:  l.playlists.Len(),
		Index:      l.coord.Stats(),
		Generation: l.gen,
	}
}

// Read runs fn with a consistent view of the graph under the shared lock.
// fn must not retain the view or call back into the library.
func (l *Library) Read(fn func(v catalog.View) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.graph)
}

// Track returns a track by id
func (l *Library) Track(id int64) (*catalog.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.graph.Track(id)
	if !ok {
		return nil, unknownTrack("get", id)
	}
	return t.Clone(), nil
}

// TrackByFile returns the track ingested from a file
func (l *Library) TrackByFile(fileRef string) (*catalog.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.graph.TrackByFile(fileRef)
	if !ok {
		return nil, &util.EntityError{Op: "get", Entity: "file", ID: fileRef, Err: util.ErrUnknownTrack}
	}
	return t.Clone(), nil
}

// Album returns an album by id
func (l *Library) Album(id int64) (*catalog.Album, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.graph.Album(id)
	if !ok {
		return nil, &util.EntityError{Op: "get", Entity: "album", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownAlbum}
	}
	return a.Clone(), nil
}

// Artist returns an artist by id
func (l *Library) Artist(id int64) (*catalog.Artist, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.graph.Artist(id)
	if !ok {
		return nil, &util.EntityError{Op: "get", Entity: "artist", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownArtist}
	}
	return a.Clone(), nil
}

// AlbumTracks lists an album's tracks ordered by disc, track number, id
func (l *Library) AlbumTracks(albumID int64) ([]*catalog.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.graph.Album(albumID); !ok {
		return nil, &util.EntityError{Op: "album_tracks", Entity: "album", ID: strconv.FormatInt(albumID, 10), Err: util.ErrUnknownAlbum}
	}
	return cloneTracks(l.graph.AlbumTracks(albumID)), nil
}

// ArtistAlbums lists the albums crediting an artist
func (l *Library) ArtistAlbums(artistID int64) ([]*catalog.Album, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.graph.Artist(artistID); !ok {
		return nil, &util.EntityError{Op: "artist_albums", Entity: "artist", ID: strconv.FormatInt(artistID, 10), Err: util.ErrUnknownArtist}
	}
	albums := l.graph.ArtistAlbums(artistID)
	out := make([]*catalog.Album, len(albums))
	for i, a := range albums {
		out[i] = a.Clone()
	}
	return out, nil
}

func cloneTracks(tracks []*catalog.Track) []*catalog.Track {
	out := make([]*catalog.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}

func unknownTrack(op string, id int64) error {
	return &util.EntityError{Op: op, Entity: "track", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownTrack}
}
