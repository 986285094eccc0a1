package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/playlist"
)

// Begin starts a write transaction. Nothing is visible to readers until
// Commit.
func (s *Store) Begin(ctx context.Context) (catalog.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

// sqlTx implements catalog.Tx on a *sql.Tx
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) PutArtist(ctx context.Context, a *catalog.Artist) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO artists (id, name, key) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			key = excluded.key
	`, a.ID, a.Name, a.Key)
	if err != nil {
		return fmt.Errorf("failed to put artist %d: %w", a.ID, err)
	}

	if _, err := t.tx.ExecContext(ctx, "DELETE FROM artist_aliases WHERE artist_id = ?", a.ID); err != nil {
		return fmt.Errorf("failed to clear aliases of artist %d: %w", a.ID, err)
	}
	for _, alias := range a.Aliases {
		if _, err := t.tx.ExecContext(ctx,
			"INSERT INTO artist_aliases (artist_id, alias) VALUES (?, ?)", a.ID, alias); err != nil {
			return fmt.Errorf("failed to put alias %q of artist %d: %w", alias, a.ID, err)
		}
	}
	return nil
}

func (t *sqlTx) DeleteArtist(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM artists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete artist %d: %w", id, err)
	}
	return nil
}

func (t *sqlTx) PutAlbum(ctx context.Context, a *catalog.Album) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO albums (id, title, year, key, cover_art_ref) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			key = excluded.key,
			cover_art_ref = excluded.cover_art_ref
	`, a.ID, a.Title, a.Year, a.Key, nullString(a.CoverArtRef))
	if err != nil {
		return fmt.Errorf("failed to put album %d: %w", a.ID, err)
	}
	return t.putCredits(ctx, "album_artists", "album_id", a.ID, a.ArtistIDs)
}

func (t *sqlTx) DeleteAlbum(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM albums WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete album %d: %w", id, err)
	}
	return nil
}

func (t *sqlTx) PutTrack(ctx context.Context, tr *catalog.Track) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tracks (id, album_id, title, title_key, duration_ms, track_no, disc_no, file_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			album_id = excluded.album_id,
			title = excluded.title,
			title_key = excluded.title_key,
			duration_ms = excluded.duration_ms,
			track_no = excluded.track_no,
			disc_no = excluded.disc_no,
			file_ref = excluded.file_ref
	`, tr.ID, tr.AlbumID, tr.Title, tr.TitleKey, tr.DurationMs, tr.TrackNo, tr.DiscNo, tr.FileRef)
	if err != nil {
		return fmt.Errorf("failed to put track %d: %w", tr.ID, err)
	}
	return t.putCredits(ctx, "track_artists", "track_id", tr.ID, tr.ArtistIDs)
}

func (t *sqlTx) DeleteTrack(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete track %d: %w", id, err)
	}
	return nil
}

// putCredits rewrites the ordered credit rows of one album or track
func (t *sqlTx) putCredits(ctx context.Context, table, owner string, id int64, artistIDs []int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+owner+" = ?", id); err != nil {
		return fmt.Errorf("failed to clear %s for %d: %w", table, id, err)
	}
	for pos, artistID := range artistIDs {
		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO "+table+" ("+owner+", position, artist_id) VALUES (?, ?, ?)",
			id, pos, artistID)
		if err != nil {
			return fmt.Errorf("failed to put %s for %d: %w", table, id, err)
		}
	}
	return nil
}

func (t *sqlTx) PutAnalysis(ctx context.Context, trackID int64, v analysis.Vector) error {
	features, err := json.Marshal(v.Features)
	if err != nil {
		return fmt.Errorf("failed to encode features for track %d: %w", trackID, err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO analysis (track_id, features_json, tempo, loudness) VALUES (?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			features_json = excluded.features_json,
			tempo = excluded.tempo,
			loudness = excluded.loudness
	`, trackID, string(features), v.Tempo, v.Loudness)
	if err != nil {
		return fmt.Errorf("failed to put analysis for track %d: %w", trackID, err)
	}
	return nil
}

func (t *sqlTx) DeleteAnalysis(ctx context.Context, trackID int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM analysis WHERE track_id = ?", trackID); err != nil {
		return fmt.Errorf("failed to delete analysis for track %d: %w", trackID, err)
	}
	return nil
}

func (t *sqlTx) PutPlaylist(ctx context.Context, p *playlist.Playlist) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO playlists (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, p.CreatedAt.UTC().Format(time.RFC3339Nano), p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to put playlist %s: %w", p.ID, err)
	}

	if _, err := t.tx.ExecContext(ctx, "DELETE FROM playlist_entries WHERE playlist_id = ?", p.ID); err != nil {
		return fmt.Errorf("failed to clear entries of playlist %s: %w", p.ID, err)
	}
	for pos, e := range p.Entries {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO playlist_entries (playlist_id, position, track_id, tombstone) VALUES (?, ?, ?, ?)
		`, p.ID, pos, e.TrackID, e.Tombstone)
		if err != nil {
			return fmt.Errorf("failed to put entry %d of playlist %s: %w", pos, p.ID, err)
		}
	}
	return nil
}

func (t *sqlTx) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return nil
}

func (t *sqlTx) PutCounters(ctx context.Context, c catalog.Counters) error {
	for _, kv := range []struct {
		kind string
		next int64
	}{{"artist", c.Artist}, {"album", c.Album}, {"track", c.Track}} {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO id_counters (kind, next_id) VALUES (?, ?)
			ON CONFLICT(kind) DO UPDATE SET next_id = excluded.next_id
		`, kv.kind, kv.next)
		if err != nil {
			return fmt.Errorf("failed to put %s counter: %w", kv.kind, err)
		}
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit
func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
