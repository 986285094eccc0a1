package catalog

import (
	"sort"

	"github.com/franz/music-catalog/internal/analysis"
)

// stage is a unit of work over a graph: reads see the graph overlaid with
// the writes made so far, writes are recorded without touching the graph.
// A nil overlay value marks a deletion.
type stage struct {
	g *Graph

	artists map[int64]*Artist
	albums  map[int64]*Album
	tracks  map[int64]*Track
	vectors map[int64]*analysis.Vector

	next    Counters
	changes *changeSet
}

func newStage(g *Graph) *stage {
	return &stage{
		g:       g,
		artists: make(map[int64]*Artist),
		albums:  make(map[int64]*Album),
		tracks:  make(map[int64]*Track),
		vectors: make(map[int64]*analysis.Vector),
		next:    g.next,
		changes: newChangeSet(),
	}
}

func (s *stage) artist(id int64) (*Artist, bool) {
	if a, staged := s.artists[id]; staged {
		return a, a != nil
	}
	return s.g.Artist(id)
}

func (s *stage) album(id int64) (*Album, bool) {
	if a, staged := s.albums[id]; staged {
		return a, a != nil
	}
	return s.g.Album(id)
}

func (s *stage) track(id int64) (*Track, bool) {
	if t, staged := s.tracks[id]; staged {
		return t, t != nil
	}
	return s.g.Track(id)
}

func (s *stage) vector(trackID int64) (analysis.Vector, bool) {
	if v, staged := s.vectors[trackID]; staged {
		if v == nil {
			return analysis.Vector{}, false
		}
		return *v, true
	}
	return s.g.Vector(trackID)
}

// artistByKey resolves a key (or alias) against the staged view
func (s *stage) artistByKey(key string) (*Artist, bool) {
	for _, a := range s.artists {
		if a != nil && a.hasKey(key) {
			return a, true
		}
	}
	if a, ok := s.g.ArtistByKey(key); ok {
		if current, live := s.artist(a.ID); live && current.hasKey(key) {
			return current, true
		}
	}
	return nil, false
}

func (a *Artist) hasKey(key string) bool {
	if a.Key == key {
		return true
	}
	for _, alias := range a.Aliases {
		if alias == key {
			return true
		}
	}
	return false
}

func (s *stage) albumByIdentity(key string, primary int64) (*Album, bool) {
	for _, a := range s.albums {
		if a != nil && a.Key == key && a.PrimaryArtistID() == primary {
			return a, true
		}
	}
	if id, ok := s.g.albumByKey[albumIdentity{key, primary}]; ok {
		if current, live := s.album(id); live && current.Key == key && current.PrimaryArtistID() == primary {
			return current, true
		}
	}
	return nil, false
}

func (s *stage) trackByFile(fileRef string) (*Track, bool) {
	for _, t := range s.tracks {
		if t != nil && t.FileRef == fileRef {
			return t, true
		}
	}
	if t, ok := s.g.TrackByFile(fileRef); ok {
		if current, live := s.track(t.ID); live && current.FileRef == fileRef {
			return current, true
		}
	}
	return nil, false
}

// albumTrackIDs lists the live tracks of an album in ascending id order
func (s *stage) albumTrackIDs(albumID int64) []int64 {
	set := make(map[int64]bool)
	for id := range s.g.albumTracks[albumID] {
		set[id] = true
	}
	for id, t := range s.tracks {
		delete(set, id)
		if t != nil && t.AlbumID == albumID {
			set[id] = true
		}
	}
	return sortedKeys(set)
}

// artistAlbumIDs lists the albums crediting an artist
func (s *stage) artistAlbumIDs(artistID int64) []int64 {
	set := make(map[int64]bool)
	for id := range s.g.albumsByArtist[artistID] {
		set[id] = true
	}
	for id, a := range s.albums {
		delete(set, id)
		if a != nil && containsID(a.ArtistIDs, artistID) {
			set[id] = true
		}
	}
	return sortedKeys(set)
}

// artistTrackIDs lists the tracks crediting an artist directly
func (s *stage) artistTrackIDs(artistID int64) []int64 {
	set := make(map[int64]bool)
	for id := range s.g.tracksByArtist[artistID] {
		set[id] = true
	}
	for id, t := range s.tracks {
		delete(set, id)
		if t != nil && containsID(t.ArtistIDs, artistID) {
			set[id] = true
		}
	}
	return sortedKeys(set)
}

func (s *stage) createArtist(name, key string) *Artist {
	a := &Artist{ID: s.next.Artist, Name: name, Key: key}
	s.next.Artist++
	s.artists[a.ID] = a
	s.changes.record(KindArtist, a.ID, OpCreated)
	return a
}

func (s *stage) createAlbum(a *Album) *Album {
	a.ID = s.next.Album
	s.next.Album++
	s.albums[a.ID] = a
	s.changes.record(KindAlbum, a.ID, OpCreated)
	return a
}

func (s *stage) createTrack(t *Track) *Track {
	t.ID = s.next.Track
	s.next.Track++
	s.tracks[t.ID] = t
	s.changes.record(KindTrack, t.ID, OpCreated)
	return t
}

// updateArtist records a new artist state; no change is emitted when nothing differs
func (s *stage) updateArtist(a *Artist) {
	if cur, ok := s.artist(a.ID); ok && sameArtist(cur, a) {
		return
	}
	s.artists[a.ID] = a
	s.changes.record(KindArtist, a.ID, OpUpdated)
}

func (s *stage) updateAlbum(a *Album) {
	if cur, ok := s.album(a.ID); ok && sameAlbum(cur, a) {
		return
	}
	s.albums[a.ID] = a
	s.changes.record(KindAlbum, a.ID, OpUpdated)
}

// updateTrack always records an Updated change: a re-scan is observable
// even when no attribute moved.
func (s *stage) updateTrack(t *Track) {
	s.tracks[t.ID] = t
	s.changes.record(KindTrack, t.ID, OpUpdated)
}

func (s *stage) deleteArtist(id int64) {
	s.artists[id] = nil
	s.changes.record(KindArtist, id, OpDeleted)
}

func (s *stage) deleteAlbum(id int64) {
	s.albums[id] = nil
	s.changes.record(KindAlbum, id, OpDeleted)
}

func (s *stage) deleteTrack(id int64) {
	s.tracks[id] = nil
	s.changes.record(KindTrack, id, OpDeleted)
	if _, ok := s.vector(id); ok {
		s.deleteVector(id)
	}
}

func (s *stage) putVector(trackID int64, v analysis.Vector) {
	op := OpCreated
	if _, ok := s.vector(trackID); ok {
		op = OpUpdated
	}
	s.vectors[trackID] = &v
	s.changes.record(KindAnalysis, trackID, op)
}

func (s *stage) deleteVector(trackID int64) {
	s.vectors[trackID] = nil
	s.changes.record(KindAnalysis, trackID, OpDeleted)
}

// settleAlbum recomputes an album's credits from its tracks, or applies the
// empty-album policy when it has none left. Returns the artists whose
// credits may have been dropped.
func (s *stage) settleAlbum(albumID int64, policy EmptyAlbumPolicy) []int64 {
	a, ok := s.album(albumID)
	if !ok {
		return nil
	}

	trackIDs := s.albumTrackIDs(albumID)
	if len(trackIDs) == 0 {
		if policy == RetainEmptyAlbums {
			return nil
		}
		s.deleteAlbum(albumID)
		return a.ArtistIDs
	}

	primary := a.PrimaryArtistID()
	guests := make(map[int64]bool)
	for _, id := range trackIDs {
		t, _ := s.track(id)
		for _, artistID := range t.ArtistIDs {
			if artistID != primary {
				guests[artistID] = true
			}
		}
	}

	next := a.Clone()
	next.ArtistIDs = append([]int64{primary}, sortedKeys(guests)...)
	s.updateAlbum(next)

	var dropped []int64
	for _, id := range a.ArtistIDs {
		if !containsID(next.ArtistIDs, id) {
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// sweepArtists deletes the given artists if nothing credits them anymore
func (s *stage) sweepArtists(ids []int64) {
	seen := make(map[int64]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := s.artist(id); !ok {
			continue
		}
		if len(s.artistAlbumIDs(id)) == 0 && len(s.artistTrackIDs(id)) == 0 {
			s.deleteArtist(id)
		}
	}
}

// batch freezes the stage into a Batch with deterministic ordering
func (s *stage) batch() *Batch {
	b := &Batch{Counters: s.next, Changes: s.changes.changes()}

	for _, id := range sortedKeys(s.artists) {
		a := s.artists[id]
		switch {
		case a != nil:
			b.PutArtists = append(b.PutArtists, a)
		case s.existed(KindArtist, id):
			b.DeleteArtists = append(b.DeleteArtists, id)
		}
	}
	for _, id := range sortedKeys(s.albums) {
		a := s.albums[id]
		switch {
		case a != nil:
			b.PutAlbums = append(b.PutAlbums, a)
		case s.existed(KindAlbum, id):
			b.DeleteAlbums = append(b.DeleteAlbums, id)
		}
	}
	for _, id := range sortedKeys(s.tracks) {
		t := s.tracks[id]
		switch {
		case t != nil:
			b.PutTracks = append(b.PutTracks, t)
		case s.existed(KindTrack, id):
			b.DeleteTracks = append(b.DeleteTracks, id)
		}
	}
	for _, id := range sortedKeys(s.vectors) {
		v := s.vectors[id]
		switch {
		case v != nil:
			b.PutAnalysis = append(b.PutAnalysis, AnalysisPut{TrackID: id, Vector: *v})
		case s.existed(KindAnalysis, id):
			b.DeleteAnalysis = append(b.DeleteAnalysis, id)
		}
	}
	return b
}

func (s *stage) existed(kind Kind, id int64) bool {
	switch kind {
	case KindArtist:
		_, ok := s.g.Artist(id)
		return ok
	case KindAlbum:
		_, ok := s.g.Album(id)
		return ok
	case KindTrack:
		return s.g.HasTrack(id)
	case KindAnalysis:
		_, ok := s.g.Vector(id)
		return ok
	}
	return false
}

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
