package store

// Schema v1 - catalog tables
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS artists (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  key TEXT NOT NULL
);

-- Keys absorbed by explicit artist merges
CREATE TABLE IF NOT EXISTS artist_aliases (
  artist_id INTEGER NOT NULL REFERENCES artists(id) ON DELETE CASCADE,
  alias TEXT NOT NULL,
  PRIMARY KEY (artist_id, alias)
);

CREATE TABLE IF NOT EXISTS albums (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  year INTEGER NOT NULL DEFAULT 0,
  key TEXT NOT NULL,
  cover_art_ref TEXT
);

-- Album credits; position 0 is the primary artist
CREATE TABLE IF NOT EXISTS album_artists (
  album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  artist_id INTEGER NOT NULL,
  PRIMARY KEY (album_id, position)
);

CREATE TABLE IF NOT EXISTS tracks (
  id INTEGER PRIMARY KEY,
  album_id INTEGER NOT NULL REFERENCES albums(id) DEFERRABLE INITIALLY DEFERRED,
  title TEXT NOT NULL,
  title_key TEXT NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  track_no INTEGER NOT NULL DEFAULT 0,
  disc_no INTEGER NOT NULL DEFAULT 0,
  file_ref TEXT NOT NULL
);

-- Track credits; position 0 is the performing artist
CREATE TABLE IF NOT EXISTS track_artists (
  track_id INTEGER NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  artist_id INTEGER NOT NULL,
  PRIMARY KEY (track_id, position)
);

-- Acoustic analysis, one row per track
CREATE TABLE IF NOT EXISTS analysis (
  track_id INTEGER PRIMARY KEY REFERENCES tracks(id) ON DELETE CASCADE,
  features_json TEXT NOT NULL,
  tempo REAL NOT NULL DEFAULT 0,
  loudness REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS playlists (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

-- Dense 0-based positions; track_id is not a foreign key so removed
-- tracks survive as tombstones
CREATE TABLE IF NOT EXISTS playlist_entries (
  playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  track_id INTEGER NOT NULL,
  tombstone INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (playlist_id, position)
);

-- Next id per entity kind; ids are never reused
CREATE TABLE IF NOT EXISTS id_counters (
  kind TEXT PRIMARY KEY,
  next_id INTEGER NOT NULL
);
`

// Schema v2 - lookup indexes
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_artists_key ON artists(key);
CREATE INDEX IF NOT EXISTS idx_artist_aliases_alias ON artist_aliases(alias);
CREATE INDEX IF NOT EXISTS idx_albums_key ON albums(key);
CREATE INDEX IF NOT EXISTS idx_album_artists_artist ON album_artists(artist_id);
CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);
CREATE INDEX IF NOT EXISTS idx_tracks_file_ref ON tracks(file_ref);
CREATE INDEX IF NOT EXISTS idx_track_artists_artist ON track_artists(artist_id);
CREATE INDEX IF NOT EXISTS idx_playlist_entries_track ON playlist_entries(track_id);
`
