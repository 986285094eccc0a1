package catalog

import (
	"context"
	"fmt"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/playlist"
)

// AnalysisPut attaches a vector to a track
type AnalysisPut struct {
	TrackID int64
	Vector  analysis.Vector
}

// Batch is the planned effect of one public operation: everything it
// writes, everything it deletes and the changes it emits.
type Batch struct {
	PutArtists  []*Artist
	PutAlbums   []*Album
	PutTracks   []*Track
	PutAnalysis []AnalysisPut

	DeleteAnalysis []int64
	DeleteTracks   []int64
	DeleteAlbums   []int64
	DeleteArtists  []int64

	Playlists []*playlist.Mutation

	// Counters after the batch is applied
	Counters Counters

	Changes []Change
}

// Empty reports whether the batch changes nothing
func (b *Batch) Empty() bool {
	return len(b.Changes) == 0
}

// AddPlaylist appends a playlist mutation and its change
func (b *Batch) AddPlaylist(mut *playlist.Mutation) {
	b.Playlists = append(b.Playlists, mut)
	b.Changes = append(b.Changes, PlaylistChange(mut))
}

// Write stages the batch in a repository transaction.
// Puts go first so deletes never strand a reference mid-transaction.
func (b *Batch) Write(ctx context.Context, tx Tx) error {
	for _, a := range b.PutArtists {
		if err := tx.PutArtist(ctx, a); err != nil {
			return fmt.Errorf("failed to put artist %d: %w", a.ID, err)
		}
	}
	for _, a := range b.PutAlbums {
		if err := tx.PutAlbum(ctx, a); err != nil {
			return fmt.Errorf("failed to put album %d: %w", a.ID, err)
		}
	}
	for _, t := range b.PutTracks {
		if err := tx.PutTrack(ctx, t); err != nil {
			return fmt.Errorf("failed to put track %d: %w", t.ID, err)
		}
	}
	for _, p := range b.PutAnalysis {
		if err := tx.PutAnalysis(ctx, p.TrackID, p.Vector); err != nil {
			return fmt.Errorf("failed to put analysis for track %d: %w", p.TrackID, err)
		}
	}

	for _, id := range b.DeleteAnalysis {
		if err := tx.DeleteAnalysis(ctx, id); err != nil {
			return fmt.Errorf("failed to delete analysis for track %d: %w", id, err)
		}
	}
	for _, id := range b.DeleteTracks {
		if err := tx.DeleteTrack(ctx, id); err != nil {
			return fmt.Errorf("failed to delete track %d: %w", id, err)
		}
	}
	for _, id := range b.DeleteAlbums {
		if err := tx.DeleteAlbum(ctx, id); err != nil {
			return fmt.Errorf("failed to delete album %d: %w", id, err)
		}
	}
	for _, id := range b.DeleteArtists {
		if err := tx.DeleteArtist(ctx, id); err != nil {
			return fmt.Errorf("failed to delete artist %d: %w", id, err)
		}
	}

	for _, mut := range b.Playlists {
		var err error
		if mut.Deleted {
			err = tx.DeletePlaylist(ctx, mut.PlaylistID)
		} else {
			err = tx.PutPlaylist(ctx, mut.Playlist)
		}
		if err != nil {
			return fmt.Errorf("failed to write playlist %s: %w", mut.PlaylistID, err)
		}
	}

	if err := tx.PutCounters(ctx, b.Counters); err != nil {
		return fmt.Errorf("failed to write id counters: %w", err)
	}
	return nil
}
