package index

import (
	"fmt"
	"strconv"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/util"
)

// DocumentFor derives the search document of an entity from the catalog.
// ok is false when the entity does not exist (its document must go).
// An error means the entity references something missing.
func DocumentFor(v catalog.View, ref catalog.EntityRef) (doc *search.Document, ok bool, err error) {
	switch ref.Kind {
	case catalog.KindTrack:
		return trackDocument(v, ref)
	case catalog.KindAlbum:
		return albumDocument(v, ref)
	case catalog.KindArtist:
		a, found := v.Artist(ref.ID)
		if !found {
			return nil, false, nil
		}
		return &search.Document{
			Ref:    ref,
			Fields: map[search.Field][]string{search.FieldTitle: {a.Name}},
		}, true, nil
	}
	return nil, false, fmt.Errorf("%s is not searchable", ref)
}

// Track: title, album title, and track plus album artist names
func trackDocument(v catalog.View, ref catalog.EntityRef) (*search.Document, bool, error) {
	t, found := v.Track(ref.ID)
	if !found {
		return nil, false, nil
	}
	album, found := v.Album(t.AlbumID)
	if !found {
		return nil, false, dangling(ref, "album", t.AlbumID)
	}

	credits := append(append([]int64(nil), t.ArtistIDs...), album.ArtistIDs...)
	names, err := artistNames(v, ref, credits)
	if err != nil {
		return nil, false, err
	}

	return &search.Document{
		Ref: ref,
		Fields: map[search.Field][]string{
			search.FieldTitle:  {t.Title},
			search.FieldAlbum:  {album.Title},
			search.FieldArtist: names,
		},
	}, true, nil
}

// Album: title and credited artist names
func albumDocument(v catalog.View, ref catalog.EntityRef) (*search.Document, bool, error) {
	a, found := v.Album(ref.ID)
	if !found {
		return nil, false, nil
	}
	names, err := artistNames(v, ref, a.ArtistIDs)
	if err != nil {
		return nil, false, err
	}
	return &search.Document{
		Ref: ref,
		Fields: map[search.Field][]string{
			search.FieldTitle:  {a.Title},
			search.FieldArtist: names,
		},
	}, true, nil
}

// artistNames resolves credits in order, each artist once
func artistNames(v catalog.View, ref catalog.EntityRef, ids []int64) ([]string, error) {
	seen := make(map[int64]bool, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		a, found := v.Artist(id)
		if !found {
			return nil, dangling(ref, "artist", id)
		}
		names = append(names, a.Name)
	}
	return names, nil
}

func dangling(ref catalog.EntityRef, kind string, id int64) error {
	return &util.EntityError{
		Op:     "index",
		Entity: ref.Kind.String(),
		ID:     strconv.FormatInt(ref.ID, 10),
		Err:    fmt.Errorf("%w: references missing %s %d", util.ErrInconsistent, kind, id),
	}
}

// allRefs lists every searchable entity in ref order
func allRefs(v catalog.View) []catalog.EntityRef {
	artists, albums, tracks := v.Artists(), v.Albums(), v.Tracks()
	refs := make([]catalog.EntityRef, 0, len(artists)+len(albums)+len(tracks))
	for _, a := range artists {
		refs = append(refs, catalog.EntityRef{Kind: catalog.KindArtist, ID: a.ID})
	}
	for _, a := range albums {
		refs = append(refs, catalog.EntityRef{Kind: catalog.KindAlbum, ID: a.ID})
	}
	for _, t := range tracks {
		refs = append(refs, catalog.EntityRef{Kind: catalog.KindTrack, ID: t.ID})
	}
	return refs
}
