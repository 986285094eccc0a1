package meta

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/franz/music-catalog/internal/util"
	"golang.org/x/text/unicode/norm"
)

const (
	// UnknownArtist is the display name used when a record has no artist
	UnknownArtist = "Unknown Artist"

	// UnknownAlbum is the display title used when a record has no album
	UnknownAlbum = "Unknown Album"
)

// featuringRe splits "Primary feat. Guest" style credits
var featuringRe = regexp.MustCompile(`(?i)\s+(?:feat\.?|ft\.?|featuring)\s+`)

// RawFileRecord is one scanned audio file as supplied by the metadata source
type RawFileRecord struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AlbumArtist string `json:"album_artist,omitempty"`
	Album       string `json:"album"`
	Year        int    `json:"year,omitempty"`
	TrackNo     int    `json:"track_no"`
	DiscNo      int    `json:"disc_no"`
	DurationMs  int    `json:"duration_ms"`
	FilePath    string `json:"file_path"`
}

// RawAnalysisRecord carries externally computed acoustic features for one file
type RawAnalysisRecord struct {
	FilePath string    `json:"file_path"`
	Features []float64 `json:"feature_vector"`
	Tempo    float64   `json:"tempo"`
	Loudness float64   `json:"loudness"`
}

// Name pairs a display string with its matching key
type Name struct {
	Display string
	Key     string
}

// Candidate is the normalized identity of a raw record.
// Keys are used for matching only; Display strings are stored.
type Candidate struct {
	// Artists credited on the track; the first is the performing artist,
	// the rest are featured guests.
	Artists []Name

	// AlbumArtist is the album's primary artist
	AlbumArtist Name

	Album Name // Album.Key is the disambiguation key (artist|title|year)
	Year  int

	Title Name

	TrackNo    int
	DiscNo     int
	DurationMs int
	FileRef    string
}

// ArtistKeys returns the distinct artist keys credited by the candidate,
// album artist first.
func (c *Candidate) ArtistKeys() []string {
	seen := make(map[string]bool)
	keys := make([]string, 0, len(c.Artists)+1)
	for _, n := range append([]Name{c.AlbumArtist}, c.Artists...) {
		if !seen[n.Key] {
			seen[n.Key] = true
			keys = append(keys, n.Key)
		}
	}
	return keys
}

// Normalize converts a raw file record into a catalog candidate.
// Title and file path are mandatory; missing artist/album fall back to the
// Unknown sentinels. Pure function.
func Normalize(rec RawFileRecord) (*Candidate, error) {
	title := CleanString(rec.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: missing title (file %q)", util.ErrMalformedRecord, rec.FilePath)
	}

	fileRef := NormalizeFileRef(rec.FilePath)
	if fileRef == "" {
		return nil, fmt.Errorf("%w: missing file reference (title %q)", util.ErrMalformedRecord, title)
	}

	artists := splitArtists(rec.Artist)

	albumArtist := artists[0]
	if aa := CleanString(rec.AlbumArtist); aa != "" && !isPlaceholderArtist(aa) {
		albumArtist = newArtistName(aa)
	}

	albumTitle := CleanString(rec.Album)
	if albumTitle == "" {
		albumTitle = UnknownAlbum
	}

	year := rec.Year
	if year < 0 {
		year = 0
	}

	return &Candidate{
		Artists:     artists,
		AlbumArtist: albumArtist,
		Album: Name{
			Display: albumTitle,
			Key:     AlbumKey(albumArtist.Key, albumTitle, year),
		},
		Year: year,
		Title: Name{
			Display: title,
			Key:     NormalizeTitle(title),
		},
		TrackNo:    nonNegative(rec.TrackNo),
		DiscNo:     nonNegative(rec.DiscNo),
		DurationMs: nonNegative(rec.DurationMs),
		FileRef:    fileRef,
	}, nil
}

// AlbumKey builds the album disambiguation key: normalized title + primary artist + year
func AlbumKey(artistKey, albumTitle string, year int) string {
	return fmt.Sprintf("%s|%s|%d", artistKey, NormalizeAlbum(albumTitle), year)
}

// NormalizeFileRef cleans a file path into the stable reference used for
// idempotent ingest.
func NormalizeFileRef(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.Clean(norm.NFC.String(path))
}

// splitArtists splits a credit like "A feat. B, C" into A (performer) and B, C (guests)
func splitArtists(raw string) []Name {
	raw = CleanString(raw)
	if raw == "" || isPlaceholderArtist(raw) {
		return []Name{newArtistName(UnknownArtist)}
	}

	parts := featuringRe.Split(raw, 2)
	names := []Name{newArtistName(parts[0])}
	seen := map[string]bool{names[0].Key: true}
	if len(parts) == 2 {
		for _, guest := range strings.FieldsFunc(parts[1], func(r rune) bool { return r == ',' || r == ';' }) {
			guest = strings.TrimSpace(strings.Trim(strings.TrimSpace(guest), "()"))
			if guest == "" {
				continue
			}
			n := newArtistName(guest)
			if !seen[n.Key] {
				seen[n.Key] = true
				names = append(names, n)
			}
		}
	}
	return names
}

func newArtistName(display string) Name {
	return Name{Display: display, Key: NormalizeArtist(display)}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
