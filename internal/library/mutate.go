package library

import (
	"context"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/util"
)

// IngestResult reports what an ingest did
type IngestResult struct {
	TrackID int64            `json:"track_id"`
	Op      catalog.Op       `json:"op"` // Created or Updated for the track
	Changes []catalog.Change `json:"changes"`
}

// Ingest normalizes a scanned-file record and links it into the catalog.
// Re-ingesting the same file updates its track in place.
func (l *Library) Ingest(ctx context.Context, rec meta.RawFileRecord) (*IngestResult, error) {
	c, err := meta.Normalize(rec)
	if err != nil {
		l.events.LogRejected("ingest", rec.FilePath, err)
		return nil, &util.EntityError{Op: "ingest", Entity: "record", ID: rec.FilePath, Err: err}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, trackID := l.graph.PlanIngest(c, l.cfg.OnEmptyAlbum)
	changes, err := l.commit(ctx, "ingest", b)
	if err != nil {
		return nil, err
	}

	res := &IngestResult{TrackID: trackID, Op: catalog.OpUpdated, Changes: changes}
	for _, ch := range changes {
		if ch.Kind == catalog.KindTrack && ch.ID == trackID {
			res.Op = ch.Op
			break
		}
	}
	return res, nil
}

// RemoveTrack deletes a track. Playlist entries referencing it become
// tombstones; its album and artists are cleaned up per the empty-album
// policy.
func (l *Library) RemoveTrack(ctx context.Context, id int64) ([]catalog.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.graph.PlanRemoveTrack(id, l.cfg.OnEmptyAlbum)
	if err != nil {
		return nil, err
	}
	l.tombstone(b, id)
	return l.commit(ctx, "remove_track", b)
}

// RemoveFile deletes the track ingested from a file
func (l *Library) RemoveFile(ctx context.Context, path string) (int64, []catalog.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, id, err := l.graph.PlanRemoveFile(meta.NormalizeFileRef(path), l.cfg.OnEmptyAlbum)
	if err != nil {
		return 0, nil, err
	}
	l.tombstone(b, id)
	changes, err := l.commit(ctx, "remove_file", b)
	return id, changes, err
}

// tombstone adds the playlist side of a track removal to the batch
func (l *Library) tombstone(b *catalog.Batch, trackID int64) {
	for _, mut := range l.playlists.PlanTombstoneTrack(trackID) {
		b.AddPlaylist(mut)
	}
}

// AttachAnalysis attaches (or replaces) a track's acoustic vector
func (l *Library) AttachAnalysis(ctx context.Context, trackID int64, v analysis.Vector) ([]catalog.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.graph.PlanAttachAnalysis(trackID, v, l.cfg.AnalysisDimension)
	if err != nil {
		return nil, err
	}
	return l.commit(ctx, "attach_analysis", b)
}

// AttachAnalysisRecord attaches an externally computed analysis to the
// track ingested from the record's file
func (l *Library) AttachAnalysisRecord(ctx context.Context, rec meta.RawAnalysisRecord) (int64, []catalog.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, trackID, err := l.graph.PlanAttachAnalysisRecord(rec, l.cfg.AnalysisDimension)
	if err != nil {
		l.events.LogRejected("attach_analysis", rec.FilePath, err)
		return 0, nil, err
	}
	changes, err := l.commit(ctx, "attach_analysis", b)
	return trackID, changes, err
}

// SetCoverArt stores an opaque cover-art reference on an album.
// An empty ref clears it.
func (l *Library) SetCoverArt(ctx context.Context, albumID int64, ref string) ([]catalog.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.graph.PlanSetCoverArt(albumID, ref)
	if err != nil {
		return nil, err
	}
	return l.commit(ctx, "set_cover_art", b)
}

// MergeArtists folds merge into keep: credits move over, albums that
// collide are combined, and merge's key becomes an alias of keep
func (l *Library) MergeArtists(ctx context.Context, keep, merge int64) ([]catalog.Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.graph.PlanMergeArtists(keep, merge)
	if err != nil {
		return nil, err
	}
	return l.commit(ctx, "merge_artists", b)
}

// SuggestArtistMerges lists artist pairs the matcher scores at least min.
// Nothing is changed; MergeArtists applies a suggestion.
func (l *Library) SuggestArtistMerges(m meta.Matcher, min float64) []catalog.MergeSuggestion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.graph.SuggestArtistMerges(m, min)
}
