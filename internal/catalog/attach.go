package catalog

import (
	"strconv"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/util"
)

// PlanAttachAnalysis plans replacing a track's analysis vector.
// dim > 0 enforces a fixed feature dimension.
func (g *Graph) PlanAttachAnalysis(trackID int64, v analysis.Vector, dim int) (*Batch, error) {
	if !g.HasTrack(trackID) {
		return nil, unknownTrack("attach_analysis", trackID)
	}
	if err := v.Validate(dim); err != nil {
		return nil, &util.EntityError{Op: "attach_analysis", Entity: "track", ID: strconv.FormatInt(trackID, 10), Err: err}
	}

	s := newStage(g)
	s.putVector(trackID, analysis.NewVector(v.Features, v.Tempo, v.Loudness))
	return s.batch(), nil
}

// PlanAttachAnalysisRecord resolves a raw analysis record by file reference
// and plans attaching it
func (g *Graph) PlanAttachAnalysisRecord(rec meta.RawAnalysisRecord, dim int) (*Batch, int64, error) {
	ref := meta.NormalizeFileRef(rec.FilePath)
	if ref == "" {
		return nil, 0, &util.EntityError{Op: "attach_analysis", Entity: "track", Err: util.ErrMalformedRecord}
	}
	t, ok := g.TrackByFile(ref)
	if !ok {
		return nil, 0, &util.EntityError{Op: "attach_analysis", Entity: "track", ID: ref, Err: util.ErrUnknownTrack}
	}
	b, err := g.PlanAttachAnalysis(t.ID, analysis.NewVector(rec.Features, rec.Tempo, rec.Loudness), dim)
	return b, t.ID, err
}

// PlanSetCoverArt plans recording an album's cover-art reference.
// The reference is opaque; an empty ref clears it.
func (g *Graph) PlanSetCoverArt(albumID int64, ref string) (*Batch, error) {
	a, ok := g.Album(albumID)
	if !ok {
		return nil, unknownAlbum("set_cover_art", albumID)
	}

	s := newStage(g)
	next := a.Clone()
	next.CoverArtRef = ref
	s.updateAlbum(next)
	return s.batch(), nil
}
