package catalog

import (
	"context"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/playlist"
)

// State is everything a repository persists
type State struct {
	Artists   []*Artist
	Albums    []*Album
	Tracks    []*Track
	Vectors   map[int64]analysis.Vector
	Playlists []*playlist.Playlist
	Counters  Counters
}

// Repository is the persistence boundary. Get methods return an error
// wrapping util.ErrNotFound for missing ids.
type Repository interface {
	Load(ctx context.Context) (*State, error)
	Begin(ctx context.Context) (Tx, error)

	GetArtist(ctx context.Context, id int64) (*Artist, error)
	GetAlbum(ctx context.Context, id int64) (*Album, error)
	GetTrack(ctx context.Context, id int64) (*Track, error)
	GetAnalysis(ctx context.Context, trackID int64) (analysis.Vector, error)
	GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error)

	Close() error
}

// Tx is one atomic unit of writes. Nothing is visible before Commit; after
// Rollback nothing happened.
type Tx interface {
	PutArtist(ctx context.Context, a *Artist) error
	DeleteArtist(ctx context.Context, id int64) error
	PutAlbum(ctx context.Context, a *Album) error
	DeleteAlbum(ctx context.Context, id int64) error
	PutTrack(ctx context.Context, t *Track) error
	DeleteTrack(ctx context.Context, id int64) error
	PutAnalysis(ctx context.Context, trackID int64, v analysis.Vector) error
	DeleteAnalysis(ctx context.Context, trackID int64) error
	PutPlaylist(ctx context.Context, p *playlist.Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
	PutCounters(ctx context.Context, c Counters) error

	Commit() error
	Rollback() error
}
