package meta

import (
	"errors"
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// ReadTags reads embedded tags from an audio file into a RawFileRecord.
// Fields the tags leave empty are inferred from the path (see ParsePath);
// a file with no tags at all is described by its path alone.
// dhowden/tag exposes no audio properties, so DurationMs stays 0.
func ReadTags(path string) (RawFileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return RawFileRecord{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	rec := RawFileRecord{FilePath: path}

	m, err := tag.ReadFrom(f)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
	case err != nil:
		return RawFileRecord{}, fmt.Errorf("failed to read tags from %s: %w", path, err)
	default:
		track, _ := m.Track()
		disc, _ := m.Disc()
		rec.Title = m.Title()
		rec.Artist = m.Artist()
		rec.AlbumArtist = m.AlbumArtist()
		rec.Album = m.Album()
		rec.Year = m.Year()
		rec.TrackNo = track
		rec.DiscNo = disc
	}

	ParsePath(path).Fill(&rec)
	return rec, nil
}
