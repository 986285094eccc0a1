package index

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/recommend"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/util"
)

func init() {
	util.SetOutput(io.Discard)
}

func newCoordinator() *Coordinator {
	return New(Options{MinTokenLen: 2, Recommend: recommend.DefaultOptions(), Workers: 4})
}

// commit applies a batch to the graph and the coordinator like the library does
func commit(t *testing.T, g *catalog.Graph, c *Coordinator, b *catalog.Batch) {
	t.Helper()
	changes := c.Begin(b.Changes)
	g.Apply(b)
	if err := c.Apply(g, changes); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
}

func ingestRecord(t *testing.T, g *catalog.Graph, c *Coordinator, rec meta.RawFileRecord) int64 {
	t.Helper()
	cand, err := meta.Normalize(rec)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	b, id := g.PlanIngest(cand, catalog.DeleteEmptyAlbums)
	commit(t, g, c, b)
	return id
}

func record(title, artist, album string, n int) meta.RawFileRecord {
	return meta.RawFileRecord{
		Title:    title,
		Artist:   artist,
		Album:    album,
		TrackNo:  n,
		FilePath: "/music/" + artist + "/" + album + "/" + title,
	}
}

func query(t *testing.T, c *Coordinator, tokens ...string) []search.Hit {
	t.Helper()
	hits, err := c.Search(search.Query{Tokens: tokens, Limit: 10})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	return hits
}

func TestApplyIndexesNewEntities(t *testing.T) {
	g := catalog.NewGraph()
	c := newCoordinator()
	id := ingestRecord(t, g, c, record("Mirror in the Bathroom", "The Beat", "First", 1))

	hits := query(t, c, "mirror")
	if len(hits) != 1 || hits[0].Ref != (catalog.EntityRef{Kind: catalog.KindTrack, ID: id}) {
		t.Fatalf("hits = %+v", hits)
	}

	// Album and artist documents exist too
	if got := len(query(t, c, "first")); got != 2 {
		t.Errorf("'first' should match the album and its track, got %d", got)
	}
	if got := len(query(t, c, "beat")); got != 3 {
		t.Errorf("'beat' should match artist, album and track, got %d", got)
	}

	if c.Log().AppliedSeq() != c.Log().IndexedSeq() || c.Log().IndexedSeq() == 0 {
		t.Errorf("applied %d, indexed %d", c.Log().AppliedSeq(), c.Log().IndexedSeq())
	}
}

func TestApplyRemovesDeletedEntities(t *testing.T) {
	g := catalog.NewGraph()
	c := newCoordinator()
	id := ingestRecord(t, g, c, record("Only", "Solo", "Single", 1))

	b, err := g.PlanRemoveTrack(id, catalog.DeleteEmptyAlbums)
	if err != nil {
		t.Fatalf("PlanRemoveTrack failed: %v", err)
	}
	commit(t, g, c, b)

	if hits := query(t, c, "solo"); len(hits) != 0 {
		t.Errorf("deleted entities still searchable: %+v", hits)
	}
	if c.Stats().Documents != 0 {
		t.Errorf("index should be empty, has %d documents", c.Stats().Documents)
	}
}

func TestApplyCascadesArtistRename(t *testing.T) {
	g := catalog.NewGraph()
	c := newCoordinator()
	ingestRecord(t, g, c, record("Song", "Old Name", "Record", 1))

	artist, _ := g.ArtistByKey("old name")
	renamed := artist.Clone()
	renamed.Name = "Fresh Name"
	b := &catalog.Batch{
		PutArtists: []*catalog.Artist{renamed},
		Counters:   g.Counters(),
		Changes:    []catalog.Change{{Op: catalog.OpUpdated, Kind: catalog.KindArtist, ID: artist.ID}},
	}
	commit(t, g, c, b)

	// artist, album and track documents all embed the name
	if got := len(query(t, c, "fresh")); got != 3 {
		t.Errorf("'fresh' matched %d documents, want 3", got)
	}
	if got := len(query(t, c, "old")); got != 0 {
		t.Errorf("old name still matches %d documents", got)
	}
}

func TestApplyDanglingReferenceMarksInconsistent(t *testing.T) {
	g := catalog.LoadGraph(&catalog.State{
		Artists: []*catalog.Artist{{ID: 1, Name: "A", Key: "a"}},
		Tracks:  []*catalog.Track{{ID: 1, AlbumID: 9, ArtistIDs: []int64{1}, Title: "Orphan", FileRef: "/o"}},
	})
	c := newCoordinator()

	changes := c.Begin([]catalog.Change{{Op: catalog.OpCreated, Kind: catalog.KindTrack, ID: 1}})
	err := c.Apply(g, changes)
	if !errors.Is(err, util.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
	if _, err := c.Search(search.Query{Tokens: []string{"orphan"}}); !errors.Is(err, util.ErrInconsistent) {
		t.Errorf("queries must fail while inconsistent, got %v", err)
	}
	if _, err := c.Engine(); !errors.Is(err, util.ErrInconsistent) {
		t.Errorf("recommendations must fail while inconsistent, got %v", err)
	}
	if c.Log().IndexedSeq() >= changes[0].Seq {
		t.Error("a failed change must not be marked indexed")
	}

	// Rebuild from a repaired catalog recovers
	fixed := catalog.NewGraph()
	built, err := c.Build(context.Background(), fixed)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	c.Swap(built)
	if err := c.Consistent(); err != nil {
		t.Errorf("Swap should clear the inconsistent state: %v", err)
	}
	if c.Log().IndexedSeq() != c.Log().AppliedSeq() {
		t.Error("after a rebuild every applied change counts as indexed")
	}
}

func TestBuildMatchesIncremental(t *testing.T) {
	g := catalog.NewGraph()
	c := newCoordinator()
	for i, title := range []string{"Love Song", "Lovely Day", "Loveless", "Other"} {
		ingestRecord(t, g, c, record(title, "Band feat. Guest", "Album", i+1))
	}
	ingestRecord(t, g, c, record("Love Song", "Band feat. Guest", "Album", 1))

	if err := c.Verify(g, nil); err != nil {
		t.Fatalf("incremental index diverged: %v", err)
	}

	built, err := c.Build(context.Background(), g)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	incremental := c.index.Documents()
	rebuilt := built.Index.Documents()
	if len(incremental) != len(rebuilt) {
		t.Fatalf("incremental has %d documents, rebuild %d", len(incremental), len(rebuilt))
	}
	for i := range incremental {
		if !incremental[i].Equal(rebuilt[i]) {
			t.Errorf("document %s differs", incremental[i].Ref)
		}
	}

	before := query(t, c, "love*")
	c.Swap(built)
	after := query(t, c, "love*")
	if len(before) != len(after) {
		t.Errorf("rebuild changed results: %v vs %v", before, after)
	}
}

func TestVerifyDetectsStaleDocument(t *testing.T) {
	g := catalog.NewGraph()
	c := newCoordinator()
	ingestRecord(t, g, c, record("Song", "Artist", "Album", 1))

	c.index.Index(&search.Document{
		Ref:    catalog.EntityRef{Kind: catalog.KindTrack, ID: 999},
		Fields: map[search.Field][]string{search.FieldTitle: {"ghost"}},
	})

	if err := c.Verify(g, nil); !errors.Is(err, util.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
	if c.Consistent() == nil {
		t.Error("Verify should mark the indices inconsistent")
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	g := catalog.NewGraph()
	c := newCoordinator()
	ingestRecord(t, g, c, record("Song", "Artist", "Album", 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Build(ctx, g); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPlaylistChangesInvalidateEdges(t *testing.T) {
	c := newCoordinator()
	snap := &recommend.Snapshot{
		Tracks:     []int64{1, 2},
		Membership: map[int64]map[string]struct{}{1: {"p": {}}, 2: {"p": {}}},
	}
	engine, _ := c.Engine()
	res, _ := engine.Compute(context.Background(), snap, 1, 5)
	engine.Commit(res)

	changes := c.Begin([]catalog.Change{{Op: catalog.OpUpdated, Kind: catalog.KindPlaylist, PlaylistID: "p", Tracks: []int64{2}}})
	if err := c.Apply(catalog.NewGraph(), changes); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, ok := engine.Cached(1, 2); ok {
		t.Error("membership shift should drop the cached edge")
	}
}
