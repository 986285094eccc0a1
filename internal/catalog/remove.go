package catalog

import (
	"strconv"

	"github.com/franz/music-catalog/internal/util"
)

// PlanRemoveTrack plans deleting a track whose backing file is gone.
// The track's analysis goes with it. If the album is left empty the policy
// decides its fate; artists no longer credited anywhere are deleted.
// Playlist tombstones are added by the caller, which owns the playlists.
func (g *Graph) PlanRemoveTrack(id int64, policy EmptyAlbumPolicy) (*Batch, error) {
	t, ok := g.Track(id)
	if !ok {
		return nil, unknownTrack("remove_track", id)
	}

	s := newStage(g)
	s.deleteTrack(id)

	touched := append([]int64(nil), t.ArtistIDs...)
	touched = append(touched, s.settleAlbum(t.AlbumID, policy)...)
	s.sweepArtists(touched)

	return s.batch(), nil
}

// PlanRemoveFile is PlanRemoveTrack keyed by file reference
func (g *Graph) PlanRemoveFile(fileRef string, policy EmptyAlbumPolicy) (*Batch, int64, error) {
	t, ok := g.TrackByFile(fileRef)
	if !ok {
		return nil, 0, &util.EntityError{Op: "remove_file", Entity: "track", ID: fileRef, Err: util.ErrUnknownTrack}
	}
	b, err := g.PlanRemoveTrack(t.ID, policy)
	return b, t.ID, err
}

func unknownTrack(op string, id int64) error {
	return &util.EntityError{Op: op, Entity: "track", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownTrack}
}

func unknownAlbum(op string, id int64) error {
	return &util.EntityError{Op: op, Entity: "album", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownAlbum}
}

func unknownArtist(op string, id int64) error {
	return &util.EntityError{Op: op, Entity: "artist", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownArtist}
}
