package library

import (
	"context"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/playlist"
	"github.com/franz/music-catalog/internal/util"
)

// playlistBatch wraps one playlist mutation. Entity counters are carried
// over unchanged.
func (l *Library) playlistBatch(mut *playlist.Mutation) *catalog.Batch {
	b := &catalog.Batch{Counters: l.graph.Counters()}
	b.AddPlaylist(mut)
	return b
}

func (l *Library) commitPlaylist(ctx context.Context, op string, mut *playlist.Mutation, err error) (*playlist.Playlist, error) {
	if err != nil {
		return nil, err
	}
	if _, err := l.commit(ctx, op, l.playlistBatch(mut)); err != nil {
		return nil, err
	}
	if mut.Deleted {
		return nil, nil
	}
	return mut.Playlist.Clone(), nil
}

// CreatePlaylist creates an empty playlist
func (l *Library) CreatePlaylist(ctx context.Context, name string) (*playlist.Playlist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mut, err := l.playlists.PlanCreate(name)
	return l.commitPlaylist(ctx, "create_playlist", mut, err)
}

// RenamePlaylist changes a playlist's name
func (l *Library) RenamePlaylist(ctx context.Context, id, name string) (*playlist.Playlist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mut, err := l.playlists.PlanRename(id, name)
	return l.commitPlaylist(ctx, "rename_playlist", mut, err)
}

// DeletePlaylist removes a playlist
func (l *Library) DeletePlaylist(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	mut, err := l.playlists.PlanDelete(id)
	_, err = l.commitPlaylist(ctx, "delete_playlist", mut, err)
	return err
}

// InsertIntoPlaylist inserts a live track at position (0..len). Entries at
// and after position shift right by one.
func (l *Library) InsertIntoPlaylist(ctx context.Context, id string, position int, trackID int64) (*playlist.Playlist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mut, err := l.playlists.PlanInsert(id, position, trackID, l.graph)
	return l.commitPlaylist(ctx, "playlist_insert", mut, err)
}

// AppendToPlaylist inserts a track at the end
func (l *Library) AppendToPlaylist(ctx context.Context, id string, trackID int64) (*playlist.Playlist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	if p, ok := l.playlists.Get(id); ok {
		n = p.Len()
	}
	mut, err := l.playlists.PlanInsert(id, n, trackID, l.graph)
	return l.commitPlaylist(ctx, "playlist_insert", mut, err)
}

// MovePlaylistEntry moves the entry at from so it ends up at to
func (l *Library) MovePlaylistEntry(ctx context.Context, id string, from, to int) (*playlist.Playlist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mut, err := l.playlists.PlanMove(id, from, to)
	return l.commitPlaylist(ctx, "playlist_move", mut, err)
}

// RemovePlaylistEntry removes the entry at position, tombstone or not
func (l *Library) RemovePlaylistEntry(ctx context.Context, id string, position int) (*playlist.Playlist, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mut, err := l.playlists.PlanRemoveAt(id, position)
	return l.commitPlaylist(ctx, "playlist_remove", mut, err)
}

// ListPlaylist returns a playlist's positions; removed tracks read as
// tombstones
func (l *Library) ListPlaylist(id string) ([]playlist.TrackRef, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.playlists.List(id, l.graph)
}

// Playlist returns a copy of one playlist
func (l *Library) Playlist(id string) (*playlist.Playlist, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.playlists.Get(id)
	if !ok {
		return nil, &util.EntityError{Op: "get", Entity: "playlist", ID: id, Err: util.ErrUnknownPlaylist}
	}
	return p.Clone(), nil
}

// Playlists returns copies of every playlist ordered by name
func (l *Library) Playlists() []*playlist.Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	all := l.playlists.All()
	out := make([]*playlist.Playlist, len(all))
	for i, p := range all {
		out[i] = p.Clone()
	}
	return out
}
