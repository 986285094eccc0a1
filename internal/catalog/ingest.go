package catalog

import (
	"github.com/franz/music-catalog/internal/meta"
)

// PlanIngest plans merging a normalized candidate into the graph and
// returns the batch plus the id of the created or updated track.
//
// Artists resolve by exact normalized key (merged aliases included), never
// by fuzzy distance. The album resolves by (disambiguation key, primary
// artist id). The track resolves by file reference, else by (title key,
// disc, track number) within the album. Re-ingesting a known file
// reference updates the track in place.
func (g *Graph) PlanIngest(c *meta.Candidate, policy EmptyAlbumPolicy) (*Batch, int64) {
	s := newStage(g)

	primary := s.resolveArtist(c.AlbumArtist)

	trackArtists := make([]int64, 0, len(c.Artists))
	for _, n := range c.Artists {
		id := s.resolveArtist(n).ID
		if !containsID(trackArtists, id) {
			trackArtists = append(trackArtists, id)
		}
	}

	// Keyed on the resolved artist so merged aliases land on the surviving album
	albumKey := meta.AlbumKey(primary.Key, c.Album.Display, c.Year)
	album, ok := s.albumByIdentity(albumKey, primary.ID)
	if !ok {
		album = s.createAlbum(&Album{
			Title:     c.Album.Display,
			Year:      c.Year,
			Key:       albumKey,
			ArtistIDs: []int64{primary.ID},
		})
	}

	existing, found := s.trackByFile(c.FileRef)
	if !found {
		existing, found = s.trackBySlot(album.ID, c)
	}

	touchedArtists := append([]int64(nil), trackArtists...)
	var trackID int64
	if found {
		next := existing.Clone()
		next.AlbumID = album.ID
		next.ArtistIDs = trackArtists
		next.Title = c.Title.Display
		next.TitleKey = c.Title.Key
		next.DurationMs = c.DurationMs
		next.TrackNo = c.TrackNo
		next.DiscNo = c.DiscNo
		next.FileRef = c.FileRef
		s.updateTrack(next)
		trackID = next.ID

		touchedArtists = append(touchedArtists, existing.ArtistIDs...)
		if existing.AlbumID != album.ID {
			touchedArtists = append(touchedArtists, s.settleAlbum(existing.AlbumID, policy)...)
		}
	} else {
		t := s.createTrack(&Track{
			AlbumID:    album.ID,
			ArtistIDs:  trackArtists,
			Title:      c.Title.Display,
			TitleKey:   c.Title.Key,
			DurationMs: c.DurationMs,
			TrackNo:    c.TrackNo,
			DiscNo:     c.DiscNo,
			FileRef:    c.FileRef,
		})
		trackID = t.ID
	}

	touchedArtists = append(touchedArtists, s.settleAlbum(album.ID, policy)...)
	s.sweepArtists(touchedArtists)

	return s.batch(), trackID
}

// resolveArtist finds an artist by exact key or creates one
func (s *stage) resolveArtist(n meta.Name) *Artist {
	if a, ok := s.artistByKey(n.Key); ok {
		return a
	}
	return s.createArtist(n.Display, n.Key)
}

// trackBySlot matches a track without a known file by title and position
// within the album
func (s *stage) trackBySlot(albumID int64, c *meta.Candidate) (*Track, bool) {
	for _, id := range s.albumTrackIDs(albumID) {
		t, _ := s.track(id)
		if t.TitleKey == c.Title.Key && t.DiscNo == c.DiscNo && t.TrackNo == c.TrackNo {
			return t, true
		}
	}
	return nil, false
}
