// Package catalog owns the normalized Artist/Album/Track graph.
//
// Mutations are planned first: every operation builds a Batch describing
// the puts, deletes and CatalogChanges it would make, without touching the
// graph. The caller persists the batch through a Repository transaction and
// only then applies it, so a failed write never leaves a half-applied
// mutation behind.
package catalog

import (
	"fmt"
	"strconv"

	"github.com/franz/music-catalog/internal/util"
)

// Kind identifies an entity kind
type Kind int

const (
	KindArtist Kind = iota
	KindAlbum
	KindTrack
	KindAnalysis
	KindPlaylist
)

func (k Kind) String() string {
	switch k {
	case KindArtist:
		return "artist"
	case KindAlbum:
		return "album"
	case KindTrack:
		return "track"
	case KindAnalysis:
		return "analysis"
	case KindPlaylist:
		return "playlist"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// EntityRef names one searchable entity
type EntityRef struct {
	Kind Kind
	ID   int64
}

// Less orders refs by kind (artist < album < track), then id
func (r EntityRef) Less(o EntityRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}

func (r EntityRef) String() string {
	return r.Kind.String() + ":" + strconv.FormatInt(r.ID, 10)
}

// Artist is a credited performer
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`

	// Keys absorbed by explicit merges; resolve to this artist
	Aliases []string `json:"aliases,omitempty"`
}

// Clone returns a deep copy
func (a *Artist) Clone() *Artist {
	c := *a
	c.Aliases = append([]string(nil), a.Aliases...)
	return &c
}

// Album groups tracks under a primary artist
type Album struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
	Key   string `json:"key"` // artistKey|titleKey|year

	// Primary artist first, then guest credits in ascending id order
	ArtistIDs []int64 `json:"artist_ids"`

	CoverArtRef string `json:"cover_art_ref,omitempty"`
}

// Clone returns a deep copy
func (a *Album) Clone() *Album {
	c := *a
	c.ArtistIDs = append([]int64(nil), a.ArtistIDs...)
	return &c
}

// PrimaryArtistID returns the album's primary credit
func (a *Album) PrimaryArtistID() int64 {
	if len(a.ArtistIDs) == 0 {
		return 0
	}
	return a.ArtistIDs[0]
}

// Track is one audio file in the catalog
type Track struct {
	ID      int64 `json:"id"`
	AlbumID int64 `json:"album_id"`

	// Performing artist first, then featured guests
	ArtistIDs []int64 `json:"artist_ids"`

	Title      string `json:"title"`
	TitleKey   string `json:"title_key"`
	DurationMs int    `json:"duration_ms"`
	TrackNo    int    `json:"track_no"`
	DiscNo     int    `json:"disc_no"`
	FileRef    string `json:"file_ref"`
}

// Clone returns a deep copy
func (t *Track) Clone() *Track {
	c := *t
	c.ArtistIDs = append([]int64(nil), t.ArtistIDs...)
	return &c
}

// Counters holds the next id to allocate per kind. Ids are never reused.
type Counters struct {
	Artist int64 `json:"artist"`
	Album  int64 `json:"album"`
	Track  int64 `json:"track"`
}

// Stats summarizes the catalog
type Stats struct {
	Artists  int `json:"artists"`
	Albums   int `json:"albums"`
	Tracks   int `json:"tracks"`
	Analyzed int `json:"analyzed"`
}

// EmptyAlbumPolicy decides what happens to an album whose last track is removed
type EmptyAlbumPolicy string

const (
	// DeleteEmptyAlbums removes the album, and artists left without credits
	DeleteEmptyAlbums EmptyAlbumPolicy = "delete"

	// RetainEmptyAlbums keeps the album and its credits as an archive placeholder
	RetainEmptyAlbums EmptyAlbumPolicy = "retain"
)

// ParseEmptyAlbumPolicy validates a policy name
func ParseEmptyAlbumPolicy(s string) (EmptyAlbumPolicy, error) {
	switch EmptyAlbumPolicy(s) {
	case DeleteEmptyAlbums, RetainEmptyAlbums:
		return EmptyAlbumPolicy(s), nil
	case "":
		return DeleteEmptyAlbums, nil
	}
	return "", fmt.Errorf("%w: unknown on_empty_album policy %q (want delete or retain)", util.ErrInvalidConfig, s)
}

func equalInt64s(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameArtist(a, b *Artist) bool {
	return a.Name == b.Name && a.Key == b.Key && equalStrings(a.Aliases, b.Aliases)
}

func sameAlbum(a, b *Album) bool {
	return a.Title == b.Title && a.Year == b.Year && a.Key == b.Key &&
		a.CoverArtRef == b.CoverArtRef && equalInt64s(a.ArtistIDs, b.ArtistIDs)
}
