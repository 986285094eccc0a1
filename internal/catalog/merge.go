package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/util"
)

// MergeSuggestion proposes folding Merge into Keep
type MergeSuggestion struct {
	Keep       int64   `json:"keep"`
	Merge      int64   `json:"merge"`
	Confidence float64 `json:"confidence"`
}

// SuggestArtistMerges scores every artist pair with the matcher and returns
// the pairs at or above min, best first. The older artist is kept.
// Nothing is changed; applying a suggestion is an explicit PlanMergeArtists.
func (g *Graph) SuggestArtistMerges(m meta.Matcher, min float64) []MergeSuggestion {
	artists := g.Artists()

	var out []MergeSuggestion
	for i := 0; i < len(artists); i++ {
		for j := i + 1; j < len(artists); j++ {
			conf := m.Match(artists[i].Key, artists[j].Key)
			if conf >= min && conf > 0 {
				out = append(out, MergeSuggestion{
					Keep:       artists[i].ID,
					Merge:      artists[j].ID,
					Confidence: conf,
				})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Keep != out[j].Keep {
			return out[i].Keep < out[j].Keep
		}
		return out[i].Merge < out[j].Merge
	})
	return out
}

// PlanMergeArtists plans folding artist merge into keep: every credit is
// re-pointed, albums that now collide with one of keep's albums are folded
// into it, merge's keys become aliases of keep and merge is deleted.
func (g *Graph) PlanMergeArtists(keepID, mergeID int64) (*Batch, error) {
	keep, ok := g.Artist(keepID)
	if !ok {
		return nil, unknownArtist("merge_artists", keepID)
	}
	merge, ok := g.Artist(mergeID)
	if !ok {
		return nil, unknownArtist("merge_artists", mergeID)
	}
	if keepID == mergeID {
		return nil, &util.EntityError{
			Op:     "merge_artists",
			Entity: "artist",
			ID:     strconv.FormatInt(keepID, 10),
			Err:    fmt.Errorf("%w: cannot merge an artist into itself", util.ErrMalformedRecord),
		}
	}

	s := newStage(g)

	for _, id := range s.artistTrackIDs(mergeID) {
		t, _ := s.track(id)
		next := t.Clone()
		next.ArtistIDs = repoint(t.ArtistIDs, mergeID, keepID)
		s.updateTrack(next)
	}

	var settle []int64
	for _, id := range s.artistAlbumIDs(mergeID) {
		a, _ := s.album(id)
		if a.PrimaryArtistID() != mergeID {
			next := a.Clone()
			next.ArtistIDs = repoint(a.ArtistIDs, mergeID, keepID)
			s.updateAlbum(next)
			settle = append(settle, id)
			continue
		}

		key := meta.AlbumKey(keep.Key, a.Title, a.Year)
		if target, collides := s.albumByIdentity(key, keepID); collides {
			for _, trackID := range s.albumTrackIDs(id) {
				t, _ := s.track(trackID)
				next := t.Clone()
				next.AlbumID = target.ID
				s.updateTrack(next)
			}
			if a.CoverArtRef != "" && target.CoverArtRef == "" {
				moved := target.Clone()
				moved.CoverArtRef = a.CoverArtRef
				s.updateAlbum(moved)
			}
			s.deleteAlbum(id)
			settle = append(settle, target.ID)
			continue
		}

		next := a.Clone()
		next.Key = key
		next.ArtistIDs = repoint(a.ArtistIDs, mergeID, keepID)
		s.updateAlbum(next)
		settle = append(settle, id)
	}

	// Recompute guest credits; folding never empties the surviving album
	for _, id := range settle {
		if _, live := s.album(id); live && len(s.albumTrackIDs(id)) > 0 {
			s.settleAlbum(id, RetainEmptyAlbums)
		}
	}

	nextKeep := keep.Clone()
	for _, k := range append([]string{merge.Key}, merge.Aliases...) {
		if k != keep.Key && !contains(nextKeep.Aliases, k) {
			nextKeep.Aliases = append(nextKeep.Aliases, k)
		}
	}
	sort.Strings(nextKeep.Aliases)
	s.updateArtist(nextKeep)
	s.deleteArtist(mergeID)

	return s.batch(), nil
}

// repoint replaces from with to, keeping order and dropping duplicates
func repoint(ids []int64, from, to int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == from {
			id = to
		}
		if !containsID(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
