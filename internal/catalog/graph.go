package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/util"
)

// View is the read side of the catalog, as seen by index builders.
// Slices are ordered by id unless noted otherwise.
type View interface {
	Artist(id int64) (*Artist, bool)
	Album(id int64) (*Album, bool)
	Track(id int64) (*Track, bool)
	Vector(trackID int64) (analysis.Vector, bool)

	Artists() []*Artist
	Albums() []*Album
	Tracks() []*Track

	// AlbumTracks is ordered by (disc, track number, id)
	AlbumTracks(albumID int64) []*Track
	ArtistAlbums(artistID int64) []*Album
	ArtistTracks(artistID int64) []*Track
}

type albumIdentity struct {
	key     string
	primary int64
}

// Graph is the authoritative entity graph plus its reverse indexes.
// Stored entities are never modified in place: planning clones, Apply swaps
// pointers. Not safe for concurrent mutation; the library serializes writers.
type Graph struct {
	artists map[int64]*Artist
	albums  map[int64]*Album
	tracks  map[int64]*Track
	vectors *analysis.Store

	artistByKey    map[string]int64 // canonical keys and aliases
	albumByKey     map[albumIdentity]int64
	trackByFile    map[string]int64
	albumTracks    map[int64]map[int64]struct{}
	albumsByArtist map[int64]map[int64]struct{}
	tracksByArtist map[int64]map[int64]struct{}

	next Counters
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		artists:        make(map[int64]*Artist),
		albums:         make(map[int64]*Album),
		tracks:         make(map[int64]*Track),
		vectors:        analysis.NewStore(),
		artistByKey:    make(map[string]int64),
		albumByKey:     make(map[albumIdentity]int64),
		trackByFile:    make(map[string]int64),
		albumTracks:    make(map[int64]map[int64]struct{}),
		albumsByArtist: make(map[int64]map[int64]struct{}),
		tracksByArtist: make(map[int64]map[int64]struct{}),
		next:           Counters{Artist: 1, Album: 1, Track: 1},
	}
}

// LoadGraph builds a graph from persisted state
func LoadGraph(state *State) *Graph {
	g := NewGraph()
	for _, a := range state.Artists {
		g.putArtist(a)
	}
	for _, a := range state.Albums {
		g.putAlbum(a)
	}
	for _, t := range state.Tracks {
		g.putTrack(t)
	}
	for id, v := range state.Vectors {
		g.vectors.Put(id, v)
	}

	g.next = state.Counters
	// Counters must stay ahead of every persisted id
	for id := range g.artists {
		if id >= g.next.Artist {
			g.next.Artist = id + 1
		}
	}
	for id := range g.albums {
		if id >= g.next.Album {
			g.next.Album = id + 1
		}
	}
	for id := range g.tracks {
		if id >= g.next.Track {
			g.next.Track = id + 1
		}
	}
	if g.next.Artist < 1 {
		g.next.Artist = 1
	}
	if g.next.Album < 1 {
		g.next.Album = 1
	}
	if g.next.Track < 1 {
		g.next.Track = 1
	}
	return g
}

// Snapshot returns an independent read-only copy of the graph.
// Entities are shared since they are never modified in place.
func (g *Graph) Snapshot() *Graph {
	s := NewGraph()
	for _, a := range g.artists {
		s.putArtist(a)
	}
	for _, a := range g.albums {
		s.putAlbum(a)
	}
	for _, t := range g.tracks {
		s.putTrack(t)
	}
	for id, v := range g.vectors.Snapshot() {
		s.vectors.Put(id, v)
	}
	s.next = g.next
	return s
}

// Apply installs a committed batch. Playlist mutations are not part of the
// graph and are applied by the owner of the playlist manager.
func (g *Graph) Apply(b *Batch) {
	for _, a := range b.PutArtists {
		g.putArtist(a)
	}
	for _, a := range b.PutAlbums {
		g.putAlbum(a)
	}
	for _, t := range b.PutTracks {
		g.putTrack(t)
	}
	for _, p := range b.PutAnalysis {
		g.vectors.Put(p.TrackID, p.Vector)
	}

	for _, id := range b.DeleteAnalysis {
		g.vectors.Delete(id)
	}
	for _, id := range b.DeleteTracks {
		if t, ok := g.tracks[id]; ok {
			g.unindexTrack(t)
			delete(g.tracks, id)
		}
	}
	for _, id := range b.DeleteAlbums {
		if a, ok := g.albums[id]; ok {
			g.unindexAlbum(a)
			delete(g.albums, id)
		}
	}
	for _, id := range b.DeleteArtists {
		if a, ok := g.artists[id]; ok {
			g.unindexArtist(a)
			delete(g.artists, id)
		}
	}

	g.next = b.Counters
}

func (g *Graph) putArtist(a *Artist) {
	if old, ok := g.artists[a.ID]; ok {
		g.unindexArtist(old)
	}
	g.artists[a.ID] = a
	g.artistByKey[a.Key] = a.ID
	for _, alias := range a.Aliases {
		g.artistByKey[alias] = a.ID
	}
}

func (g *Graph) unindexArtist(a *Artist) {
	for _, k := range append([]string{a.Key}, a.Aliases...) {
		if g.artistByKey[k] == a.ID {
			delete(g.artistByKey, k)
		}
	}
}

func (g *Graph) putAlbum(a *Album) {
	if old, ok := g.albums[a.ID]; ok {
		g.unindexAlbum(old)
	}
	g.albums[a.ID] = a
	g.albumByKey[albumIdentity{a.Key, a.PrimaryArtistID()}] = a.ID
	for _, artistID := range a.ArtistIDs {
		addRef(g.albumsByArtist, artistID, a.ID)
	}
}

func (g *Graph) unindexAlbum(a *Album) {
	id := albumIdentity{a.Key, a.PrimaryArtistID()}
	if g.albumByKey[id] == a.ID {
		delete(g.albumByKey, id)
	}
	for _, artistID := range a.ArtistIDs {
		dropRef(g.albumsByArtist, artistID, a.ID)
	}
}

func (g *Graph) putTrack(t *Track) {
	if old, ok := g.tracks[t.ID]; ok {
		g.unindexTrack(old)
	}
	g.tracks[t.ID] = t
	g.trackByFile[t.FileRef] = t.ID
	addRef(g.albumTracks, t.AlbumID, t.ID)
	for _, artistID := range t.ArtistIDs {
		addRef(g.tracksByArtist, artistID, t.ID)
	}
}

func (g *Graph) unindexTrack(t *Track) {
	if g.trackByFile[t.FileRef] == t.ID {
		delete(g.trackByFile, t.FileRef)
	}
	dropRef(g.albumTracks, t.AlbumID, t.ID)
	for _, artistID := range t.ArtistIDs {
		dropRef(g.tracksByArtist, artistID, t.ID)
	}
}

func addRef(m map[int64]map[int64]struct{}, owner, id int64) {
	set := m[owner]
	if set == nil {
		set = make(map[int64]struct{})
		m[owner] = set
	}
	set[id] = struct{}{}
}

func dropRef(m map[int64]map[int64]struct{}, owner, id int64) {
	set := m[owner]
	delete(set, id)
	if len(set) == 0 {
		delete(m, owner)
	}
}

// Artist returns an artist by id
func (g *Graph) Artist(id int64) (*Artist, bool) {
	a, ok := g.artists[id]
	return a, ok
}

// Album returns an album by id
func (g *Graph) Album(id int64) (*Album, bool) {
	a, ok := g.albums[id]
	return a, ok
}

// Track returns a track by id
func (g *Graph) Track(id int64) (*Track, bool) {
	t, ok := g.tracks[id]
	return t, ok
}

// HasTrack reports whether a track id is live
func (g *Graph) HasTrack(id int64) bool {
	_, ok := g.tracks[id]
	return ok
}

// Vector returns the analysis vector attached to a track
func (g *Graph) Vector(trackID int64) (analysis.Vector, bool) {
	return g.vectors.Get(trackID)
}

// Vectors copies the track id -> vector mapping
func (g *Graph) Vectors() map[int64]analysis.Vector {
	return g.vectors.Snapshot()
}

// ArtistByKey resolves a normalized key (or merged alias) to an artist
func (g *Graph) ArtistByKey(key string) (*Artist, bool) {
	id, ok := g.artistByKey[key]
	if !ok {
		return nil, false
	}
	return g.artists[id], true
}

// TrackByFile resolves a file reference to a track
func (g *Graph) TrackByFile(fileRef string) (*Track, bool) {
	id, ok := g.trackByFile[fileRef]
	if !ok {
		return nil, false
	}
	return g.tracks[id], true
}

// Artists returns every artist ordered by id
func (g *Graph) Artists() []*Artist {
	out := make([]*Artist, 0, len(g.artists))
	for _, a := range g.artists {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Albums returns every album ordered by id
func (g *Graph) Albums() []*Album {
	out := make([]*Album, 0, len(g.albums))
	for _, a := range g.albums {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tracks returns every track ordered by id
func (g *Graph) Tracks() []*Track {
	out := make([]*Track, 0, len(g.tracks))
	for _, t := range g.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TrackIDs returns every track id in ascending order
func (g *Graph) TrackIDs() []int64 {
	ids := make([]int64, 0, len(g.tracks))
	for id := range g.tracks {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// AlbumTracks returns an album's tracks ordered by (disc, track number, id)
func (g *Graph) AlbumTracks(albumID int64) []*Track {
	out := make([]*Track, 0, len(g.albumTracks[albumID]))
	for id := range g.albumTracks[albumID] {
		out = append(out, g.tracks[id])
	}
	sortTracks(out)
	return out
}

// ArtistAlbums returns the albums crediting an artist
func (g *Graph) ArtistAlbums(artistID int64) []*Album {
	out := make([]*Album, 0, len(g.albumsByArtist[artistID]))
	for id := range g.albumsByArtist[artistID] {
		out = append(out, g.albums[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ArtistTracks returns the tracks crediting an artist directly
func (g *Graph) ArtistTracks(artistID int64) []*Track {
	out := make([]*Track, 0, len(g.tracksByArtist[artistID]))
	for id := range g.tracksByArtist[artistID] {
		out = append(out, g.tracks[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counters returns the next ids to be allocated
func (g *Graph) Counters() Counters {
	return g.next
}

// Stats counts entities
func (g *Graph) Stats() Stats {
	return Stats{
		Artists:  len(g.artists),
		Albums:   len(g.albums),
		Tracks:   len(g.tracks),
		Analyzed: g.vectors.Len(),
	}
}

// Check verifies referential integrity: every track's album exists, every
// album has at least one existing artist credit and is reachable from it,
// every artist is referenced, identity keys are unique and every vector
// belongs to a live track. Violations are reported together.
func (g *Graph) Check() error {
	var problems []error
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	for _, t := range g.Tracks() {
		if _, ok := g.albums[t.AlbumID]; !ok {
			add("track %d: album %d does not exist", t.ID, t.AlbumID)
		}
		if len(t.ArtistIDs) == 0 {
			add("track %d: no artist credit", t.ID)
		}
		for _, artistID := range t.ArtistIDs {
			if _, ok := g.artists[artistID]; !ok {
				add("track %d: artist %d does not exist", t.ID, artistID)
			}
		}
		if g.trackByFile[t.FileRef] != t.ID {
			add("track %d: file %q indexed to track %d", t.ID, t.FileRef, g.trackByFile[t.FileRef])
		}
	}

	seenAlbum := make(map[albumIdentity]int64)
	for _, a := range g.Albums() {
		if len(a.ArtistIDs) == 0 {
			add("album %d: no artist credit", a.ID)
		}
		for _, artistID := range a.ArtistIDs {
			if _, ok := g.artists[artistID]; !ok {
				add("album %d: artist %d does not exist", a.ID, artistID)
				continue
			}
			if _, ok := g.albumsByArtist[artistID][a.ID]; !ok {
				add("album %d: not reachable from artist %d", a.ID, artistID)
			}
		}
		id := albumIdentity{a.Key, a.PrimaryArtistID()}
		if other, dup := seenAlbum[id]; dup {
			add("album %d: identity %q shared with album %d", a.ID, a.Key, other)
		}
		seenAlbum[id] = a.ID
	}

	seenKey := make(map[string]int64)
	for _, a := range g.Artists() {
		if len(g.albumsByArtist[a.ID]) == 0 && len(g.tracksByArtist[a.ID]) == 0 {
			add("artist %d: not credited by any album or track", a.ID)
		}
		for _, k := range append([]string{a.Key}, a.Aliases...) {
			if other, dup := seenKey[k]; dup {
				add("artist %d: key %q shared with artist %d", a.ID, k, other)
			}
			seenKey[k] = a.ID
		}
	}

	for id := range g.vectors.Snapshot() {
		if _, ok := g.tracks[id]; !ok {
			add("analysis for track %d: track does not exist", id)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d integrity violations: %w", util.ErrInconsistent, len(problems), errors.Join(problems...))
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortTracks(tracks []*Track) {
	sort.Slice(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.DiscNo != b.DiscNo {
			return a.DiscNo < b.DiscNo
		}
		if a.TrackNo != b.TrackNo {
			return a.TrackNo < b.TrackNo
		}
		return a.ID < b.ID
	})
}
