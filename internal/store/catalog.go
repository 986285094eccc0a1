package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/playlist"
	"github.com/franz/music-catalog/internal/util"
)

var _ catalog.Repository = (*Store)(nil)

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Load reads the whole catalog in one read transaction
func (s *Store) Load(ctx context.Context) (*catalog.State, error) {
	state := &catalog.State{Vectors: make(map[int64]analysis.Vector)}

	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		if state.Artists, err = loadArtists(ctx, tx, ""); err != nil {
			return err
		}
		if state.Albums, err = loadAlbums(ctx, tx, ""); err != nil {
			return err
		}
		if state.Tracks, err = loadTracks(ctx, tx, ""); err != nil {
			return err
		}
		if err := loadAnalysis(ctx, tx, state.Vectors); err != nil {
			return err
		}
		if state.Playlists, err = loadPlaylists(ctx, tx, ""); err != nil {
			return err
		}
		state.Counters, err = loadCounters(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return state, nil
}

// GetArtist retrieves an artist by ID
func (s *Store) GetArtist(ctx context.Context, id int64) (*catalog.Artist, error) {
	artists, err := loadArtists(ctx, s.db, fmt.Sprintf("WHERE id = %d", id))
	if err != nil {
		return nil, err
	}
	if len(artists) == 0 {
		return nil, fmt.Errorf("artist %d: %w", id, util.ErrNotFound)
	}
	return artists[0], nil
}

// GetAlbum retrieves an album by ID
func (s *Store) GetAlbum(ctx context.Context, id int64) (*catalog.Album, error) {
	albums, err := loadAlbums(ctx, s.db, fmt.Sprintf("WHERE id = %d", id))
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, fmt.Errorf("album %d: %w", id, util.ErrNotFound)
	}
	return albums[0], nil
}

// GetTrack retrieves a track by ID
func (s *Store) GetTrack(ctx context.Context, id int64) (*catalog.Track, error) {
	tracks, err := loadTracks(ctx, s.db, fmt.Sprintf("WHERE id = %d", id))
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("track %d: %w", id, util.ErrNotFound)
	}
	return tracks[0], nil
}

// GetAnalysis retrieves the analysis vector attached to a track
func (s *Store) GetAnalysis(ctx context.Context, trackID int64) (analysis.Vector, error) {
	var featuresJSON string
	var v analysis.Vector
	err := s.db.QueryRowContext(ctx, `
		SELECT features_json, tempo, loudness FROM analysis WHERE track_id = ?
	`, trackID).Scan(&featuresJSON, &v.Tempo, &v.Loudness)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.Vector{}, fmt.Errorf("analysis for track %d: %w", trackID, util.ErrNotFound)
	}
	if err != nil {
		return analysis.Vector{}, fmt.Errorf("failed to get analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(featuresJSON), &v.Features); err != nil {
		return analysis.Vector{}, fmt.Errorf("failed to decode features for track %d: %w", trackID, err)
	}
	return v, nil
}

// GetPlaylist retrieves a playlist and its entries
func (s *Store) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	var out []*playlist.Playlist
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = loadPlaylists(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("playlist %s: %w", id, util.ErrNotFound)
	}
	return out[0], nil
}

func loadArtists(ctx context.Context, q querier, where string) ([]*catalog.Artist, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, key FROM artists "+where+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	var artists []*catalog.Artist
	byID := make(map[int64]*catalog.Artist)
	for rows.Next() {
		a := &catalog.Artist{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
		byID[a.ID] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasWhere := ""
	if where != "" {
		aliasWhere = "WHERE artist_id IN (SELECT id FROM artists " + where + ")"
	}
	rows, err = q.QueryContext(ctx, "SELECT artist_id, alias FROM artist_aliases "+aliasWhere+" ORDER BY artist_id, alias")
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var alias string
		if err := rows.Scan(&id, &alias); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		if a, ok := byID[id]; ok {
			a.Aliases = append(a.Aliases, alias)
		}
	}
	return artists, rows.Err()
}

func loadAlbums(ctx context.Context, q querier, where string) ([]*catalog.Album, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, title, year, key, cover_art_ref FROM albums "+where+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	var albums []*catalog.Album
	byID := make(map[int64]*catalog.Album)
	for rows.Next() {
		a := &catalog.Album{}
		var cover sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Year, &a.Key, &cover); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		a.CoverArtRef = cover.String
		albums = append(albums, a)
		byID[a.ID] = a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	creditWhere := ""
	if where != "" {
		creditWhere = "WHERE album_id IN (SELECT id FROM albums " + where + ")"
	}
	err = loadCredits(ctx, q, "SELECT album_id, artist_id FROM album_artists "+creditWhere+" ORDER BY album_id, position",
		func(id, artistID int64) {
			if a, ok := byID[id]; ok {
				a.ArtistIDs = append(a.ArtistIDs, artistID)
			}
		})
	return albums, err
}

func loadTracks(ctx context.Context, q querier, where string) ([]*catalog.Track, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, album_id, title, title_key, duration_ms, track_no, disc_no, file_ref
		FROM tracks `+where+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	var tracks []*catalog.Track
	byID := make(map[int64]*catalog.Track)
	for rows.Next() {
		t := &catalog.Track{}
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.Title, &t.TitleKey,
			&t.DurationMs, &t.TrackNo, &t.DiscNo, &t.FileRef); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
		byID[t.ID] = t
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	creditWhere := ""
	if where != "" {
		creditWhere = "WHERE track_id IN (SELECT id FROM tracks " + where + ")"
	}
	err = loadCredits(ctx, q, "SELECT track_id, artist_id FROM track_artists "+creditWhere+" ORDER BY track_id, position",
		func(id, artistID int64) {
			if t, ok := byID[id]; ok {
				t.ArtistIDs = append(t.ArtistIDs, artistID)
			}
		})
	return tracks, err
}

func loadCredits(ctx context.Context, q querier, query string, add func(id, artistID int64)) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, artistID int64
		if err := rows.Scan(&id, &artistID); err != nil {
			return fmt.Errorf("failed to scan credit: %w", err)
		}
		add(id, artistID)
	}
	return rows.Err()
}

func loadAnalysis(ctx context.Context, q querier, into map[int64]analysis.Vector) error {
	rows, err := q.QueryContext(ctx, "SELECT track_id, features_json, tempo, loudness FROM analysis")
	if err != nil {
		return fmt.Errorf("failed to query analysis: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var featuresJSON string
		var v analysis.Vector
		if err := rows.Scan(&id, &featuresJSON, &v.Tempo, &v.Loudness); err != nil {
			return fmt.Errorf("failed to scan analysis: %w", err)
		}
		if err := json.Unmarshal([]byte(featuresJSON), &v.Features); err != nil {
			return fmt.Errorf("failed to decode features for track %d: %w", id, err)
		}
		into[id] = v
	}
	return rows.Err()
}

// loadPlaylists loads every playlist, or only the one with the given id
func loadPlaylists(ctx context.Context, q querier, id string) ([]*playlist.Playlist, error) {
	query := "SELECT id, name, created_at, updated_at FROM playlists"
	entryQuery := "SELECT playlist_id, track_id, tombstone FROM playlist_entries"
	var args []any
	if id != "" {
		query += " WHERE id = ?"
		entryQuery += " WHERE playlist_id = ?"
		args = append(args, id)
	}
	query += " ORDER BY id"
	entryQuery += " ORDER BY playlist_id, position"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	var playlists []*playlist.Playlist
	byID := make(map[string]*playlist.Playlist)
	for rows.Next() {
		p := &playlist.Playlist{Entries: []playlist.Entry{}}
		var created, updated string
		if err := rows.Scan(&p.ID, &p.Name, &created, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		playlists = append(playlists, p)
		byID[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, entryQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		var e playlist.Entry
		if err := rows.Scan(&pid, &e.TrackID, &e.Tombstone); err != nil {
			return nil, fmt.Errorf("failed to scan playlist entry: %w", err)
		}
		if p, ok := byID[pid]; ok {
			p.Entries = append(p.Entries, e)
		}
	}
	return playlists, rows.Err()
}

func loadCounters(ctx context.Context, q querier) (catalog.Counters, error) {
	var c catalog.Counters
	rows, err := q.QueryContext(ctx, "SELECT kind, next_id FROM id_counters")
	if err != nil {
		return c, fmt.Errorf("failed to query counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var next int64
		if err := rows.Scan(&kind, &next); err != nil {
			return c, fmt.Errorf("failed to scan counter: %w", err)
		}
		switch kind {
		case "artist":
			c.Artist = next
		case "album":
			c.Album = next
		case "track":
			c.Track = next
		}
	}
	return c, rows.Err()
}
