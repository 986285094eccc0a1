package main

import (
	"fmt"
	"strings"

	"github.com/franz/music-catalog/internal/catalog"
)

// describeRef renders a one-line label for a catalog entity
func describeRef(v catalog.View, ref catalog.EntityRef) string {
	switch ref.Kind {
	case catalog.KindArtist:
		if a, ok := v.Artist(ref.ID); ok {
			return a.Name
		}
	case catalog.KindAlbum:
		if a, ok := v.Album(ref.ID); ok {
			return describeAlbum(v, a)
		}
	case catalog.KindTrack:
		return describeTrack(v, ref.ID)
	}
	return "(missing)"
}

func describeTrack(v catalog.View, id int64) string {
	t, ok := v.Track(id)
	if !ok {
		return "(removed)"
	}
	label := fmt.Sprintf("%s - %s", artistNames(v, t.ArtistIDs), t.Title)
	if a, ok := v.Album(t.AlbumID); ok {
		label += fmt.Sprintf(" [%s]", a.Title)
	}
	return label
}

func describeAlbum(v catalog.View, a *catalog.Album) string {
	label := fmt.Sprintf("%s - %s", artistNames(v, a.ArtistIDs[:min(1, len(a.ArtistIDs))]), a.Title)
	if a.Year > 0 {
		label += fmt.Sprintf(" (%d)", a.Year)
	}
	return label
}

func artistNames(v catalog.View, ids []int64) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if a, ok := v.Artist(id); ok {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return "?"
	}
	if len(names) == 1 {
		return names[0]
	}
	return names[0] + " feat. " + strings.Join(names[1:], ", ")
}
