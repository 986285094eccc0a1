package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/config"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

func init() {
	util.SetOutput(io.Discard)
}

func openMemory(t *testing.T, mutate func(c *config.Config)) (*Library, *catalog.MemoryRepository) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	repo := catalog.NewMemoryRepository()
	lib, err := Open(context.Background(), repo, cfg, report.NullLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return lib, repo
}

func beat(n int, title string) meta.RawFileRecord {
	return meta.RawFileRecord{
		Title:    title,
		Artist:   "The Beat",
		Album:    "First",
		Year:     1980,
		TrackNo:  n,
		DiscNo:   1,
		FilePath: filepath.Join("/music/the beat/first", title+".flac"),
	}
}

func mustIngest(t *testing.T, lib *Library, rec meta.RawFileRecord) *IngestResult {
	t.Helper()
	res, err := lib.Ingest(context.Background(), rec)
	if err != nil {
		t.Fatalf("Ingest(%q) failed: %v", rec.Title, err)
	}
	return res
}

func searchRefs(t *testing.T, lib *Library, text string) []catalog.EntityRef {
	t.Helper()
	hits, err := lib.Search(search.ParseQuery(text, 10, 0))
	if err != nil {
		t.Fatalf("Search(%q) failed: %v", text, err)
	}
	refs := make([]catalog.EntityRef, len(hits))
	for i, h := range hits {
		refs[i] = h.Ref
	}
	return refs
}

func checkIntegrity(t *testing.T, lib *Library) {
	t.Helper()
	if err := lib.Verify(context.Background()); err != nil {
		t.Fatalf("integrity/consistency check failed: %v", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID
	t2 := mustIngest(t, lib, beat(2, "Hands Off She's Mine")).TrackID
	t3 := mustIngest(t, lib, beat(3, "Twist and Crawl")).TrackID
	checkIntegrity(t, lib)

	stats := lib.Stats().Catalog
	if stats.Artists != 1 || stats.Albums != 1 || stats.Tracks != 3 {
		t.Fatalf("expected 1 artist, 1 album, 3 tracks, got %+v", stats)
	}

	if _, err := lib.AttachAnalysis(ctx, t1, analysis.NewVector([]float64{0.2, 0.4, 0.9}, 160, -7)); err != nil {
		t.Fatalf("AttachAnalysis failed: %v", err)
	}

	recs, err := lib.Recommend(ctx, t1, 2)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) > 2 {
		t.Errorf("expected at most 2 recommendations, got %d", len(recs))
	}
	for _, r := range recs {
		if r.TrackID == t1 {
			t.Error("a track must not recommend itself")
		}
	}

	if _, err := lib.RemoveTrack(ctx, t2); err != nil {
		t.Fatalf("RemoveTrack(2) failed: %v", err)
	}
	checkIntegrity(t, lib)

	first, err := lib.Track(t1)
	if err != nil {
		t.Fatalf("track 1 vanished: %v", err)
	}
	tracks, err := lib.AlbumTracks(first.AlbumID)
	if err != nil {
		t.Fatalf("album should persist: %v", err)
	}
	if len(tracks) != 2 || tracks[0].ID != t1 || tracks[1].ID != t3 {
		t.Errorf("expected album tracks [%d %d], got %d tracks", t1, t3, len(tracks))
	}
	if refs := searchRefs(t, lib, "First"); len(refs) == 0 {
		t.Error("album should still be searchable")
	}

	for _, id := range []int64{t1, t3} {
		if _, err := lib.RemoveTrack(ctx, id); err != nil {
			t.Fatalf("RemoveTrack(%d) failed: %v", id, err)
		}
	}
	checkIntegrity(t, lib)

	if refs := searchRefs(t, lib, "First"); len(refs) != 0 {
		t.Errorf("expected no hits for First, got %v", refs)
	}
	if refs := searchRefs(t, lib, "Beat"); len(refs) != 0 {
		t.Errorf("expected artist gone from search, got %v", refs)
	}
	stats = lib.Stats().Catalog
	if stats.Artists != 0 || stats.Albums != 0 || stats.Tracks != 0 || stats.Analyzed != 0 {
		t.Errorf("expected an empty catalog, got %+v", stats)
	}
}

func TestIngestIdempotent(t *testing.T) {
	lib, _ := openMemory(t, nil)

	first := mustIngest(t, lib, beat(1, "Mirror in the Bathroom"))
	if first.Op != catalog.OpCreated {
		t.Errorf("first ingest: expected created, got %s", first.Op)
	}
	second := mustIngest(t, lib, beat(1, "Mirror in the Bathroom"))
	if second.Op != catalog.OpUpdated {
		t.Errorf("second ingest: expected updated, got %s", second.Op)
	}
	if second.TrackID != first.TrackID {
		t.Errorf("expected the same track, got %d and %d", first.TrackID, second.TrackID)
	}
	for _, ch := range second.Changes {
		if ch.Op == catalog.OpCreated {
			t.Errorf("re-ingest must not create anything, got %+v", ch)
		}
	}
	if n := lib.Stats().Catalog.Tracks; n != 1 {
		t.Errorf("expected exactly one track, got %d", n)
	}
	if applied := lib.Stats().Index.AppliedSeq; applied != uint64(len(first.Changes)+len(second.Changes)) {
		t.Errorf("expected applied seq to count every change, got %d", applied)
	}
}

func TestIngestRejectsMalformed(t *testing.T) {
	lib, _ := openMemory(t, nil)

	_, err := lib.Ingest(context.Background(), meta.RawFileRecord{Artist: "The Beat", FilePath: "/x.flac"})
	if !errors.Is(err, util.ErrMalformedRecord) {
		t.Fatalf("expected ErrMalformedRecord, got %v", err)
	}
	var ee *util.EntityError
	if !errors.As(err, &ee) || ee.ID != "/x.flac" {
		t.Errorf("expected error to name the file, got %v", err)
	}
	if lib.Generation() != 0 {
		t.Error("a rejected record must not commit anything")
	}
}

func TestUnknownIDs(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"remove", func() error { _, err := lib.RemoveTrack(ctx, 42); return err }, util.ErrUnknownTrack},
		{"recommend", func() error { _, err := lib.Recommend(ctx, 42, 5); return err }, util.ErrUnknownTrack},
		{"analysis", func() error {
			_, err := lib.AttachAnalysis(ctx, 42, analysis.NewVector([]float64{1}, 1, 1))
			return err
		}, util.ErrUnknownTrack},
		{"cover art", func() error { _, err := lib.SetCoverArt(ctx, 42, "x.jpg"); return err }, util.ErrUnknownAlbum},
		{"playlist", func() error { _, err := lib.ListPlaylist("nope"); return err }, util.ErrUnknownPlaylist},
		{"merge", func() error { _, err := lib.MergeArtists(ctx, 1, 2); return err }, util.ErrUnknownArtist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPlaylistTombstones(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID
	t2 := mustIngest(t, lib, beat(2, "Hands Off She's Mine")).TrackID

	pl, err := lib.CreatePlaylist(ctx, "Ska")
	if err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	for _, id := range []int64{t1, t2, t1} {
		if _, err := lib.AppendToPlaylist(ctx, pl.ID, id); err != nil {
			t.Fatalf("AppendToPlaylist failed: %v", err)
		}
	}

	if _, err := lib.RemoveTrack(ctx, t1); err != nil {
		t.Fatalf("RemoveTrack failed: %v", err)
	}

	refs, err := lib.ListPlaylist(pl.ID)
	if err != nil {
		t.Fatalf("ListPlaylist failed: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("tombstoning must not shrink the playlist, got %d entries", len(refs))
	}
	want := []bool{true, false, true}
	for i, r := range refs {
		if r.Tombstone != want[i] || r.Position != i {
			t.Errorf("entry %d: got %+v, want tombstone=%v", i, r, want[i])
		}
	}

	// Inserting a removed track is rejected
	if _, err := lib.InsertIntoPlaylist(ctx, pl.ID, 0, t1); !errors.Is(err, util.ErrUnknownTrack) {
		t.Errorf("expected ErrUnknownTrack, got %v", err)
	}
	if _, err := lib.MovePlaylistEntry(ctx, pl.ID, 0, 9); !errors.Is(err, util.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	// Tombstones can be removed explicitly
	if _, err := lib.RemovePlaylistEntry(ctx, pl.ID, 0); err != nil {
		t.Fatalf("RemovePlaylistEntry failed: %v", err)
	}
	refs, _ = lib.ListPlaylist(pl.ID)
	if len(refs) != 2 || refs[0].TrackID != t2 {
		t.Errorf("unexpected playlist after removal: %+v", refs)
	}
}

func TestPlaylistOrder(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	var ids []int64
	for i, title := range []string{"One", "Two", "Three", "Four", "Five", "Six"} {
		ids = append(ids, mustIngest(t, lib, beat(i+1, title)).TrackID)
	}

	pl, _ := lib.CreatePlaylist(ctx, "Order")
	for _, id := range ids[:5] {
		if _, err := lib.AppendToPlaylist(ctx, pl.ID, id); err != nil {
			t.Fatalf("AppendToPlaylist failed: %v", err)
		}
	}

	// Insert at position 2 of 5: old entries 2..4 shift to 3..5
	if _, err := lib.InsertIntoPlaylist(ctx, pl.ID, 2, ids[5]); err != nil {
		t.Fatalf("InsertIntoPlaylist failed: %v", err)
	}
	expectOrder(t, lib, pl.ID, []int64{ids[0], ids[1], ids[5], ids[2], ids[3], ids[4]})

	p, err := lib.MovePlaylistEntry(ctx, pl.ID, 0, 5)
	if err != nil {
		t.Fatalf("MovePlaylistEntry failed: %v", err)
	}
	if p.Len() != 6 {
		t.Errorf("move must keep the length, got %d", p.Len())
	}
	expectOrder(t, lib, pl.ID, []int64{ids[1], ids[5], ids[2], ids[3], ids[4], ids[0]})

	renamed, err := lib.RenamePlaylist(ctx, pl.ID, "Order 2")
	if err != nil || renamed.Name != "Order 2" {
		t.Errorf("RenamePlaylist: %v, %+v", err, renamed)
	}
	if err := lib.DeletePlaylist(ctx, pl.ID); err != nil {
		t.Fatalf("DeletePlaylist failed: %v", err)
	}
	if len(lib.Playlists()) != 0 {
		t.Error("expected no playlists left")
	}
}

func expectOrder(t *testing.T, lib *Library, id string, want []int64) {
	t.Helper()
	refs, err := lib.ListPlaylist(id)
	if err != nil {
		t.Fatalf("ListPlaylist failed: %v", err)
	}
	if len(refs) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(refs))
	}
	for i := range want {
		if refs[i].TrackID != want[i] {
			t.Errorf("position %d: got track %d, want %d", i, refs[i].TrackID, want[i])
		}
	}
}

func TestRecommendUsesPlaylistsAndIsSymmetric(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID
	t2 := mustIngest(t, lib, beat(2, "Hands Off She's Mine")).TrackID
	t3 := mustIngest(t, lib, beat(3, "Twist and Crawl")).TrackID

	lib.AttachAnalysis(ctx, t1, analysis.NewVector([]float64{1, 0}, 120, -8))
	lib.AttachAnalysis(ctx, t2, analysis.NewVector([]float64{1, 0.1}, 121, -8))
	lib.AttachAnalysis(ctx, t3, analysis.NewVector([]float64{0, 1}, 90, -12))

	recs, err := lib.Recommend(ctx, t1, 5)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(recs) != 2 || recs[0].TrackID != t2 {
		t.Fatalf("expected the acoustically closer track first, got %+v", recs)
	}
	if edges := lib.Stats().Index.Edges; edges != 2 {
		t.Errorf("expected 2 cached edges, got %d", edges)
	}

	// Co-occurrence lifts t3
	pl, _ := lib.CreatePlaylist(ctx, "Mix")
	lib.AppendToPlaylist(ctx, pl.ID, t1)
	lib.AppendToPlaylist(ctx, pl.ID, t3)

	recs, err = lib.Recommend(ctx, t1, 5)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if recs[0].TrackID != t3 {
		t.Errorf("expected playlist co-occurrence to rank t3 first, got %+v", recs)
	}

	ab, err := lib.Score(t1, t3)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	ba, _ := lib.Score(t3, t1)
	if ab != ba {
		t.Errorf("score not symmetric: %v vs %v", ab, ba)
	}
	checkIntegrity(t, lib)
}

func TestRecommendStaleSnapshot(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID
	t2 := mustIngest(t, lib, beat(2, "Hands Off She's Mine")).TrackID
	lib.AttachAnalysis(ctx, t1, analysis.NewVector([]float64{1, 0}, 120, -8))
	lib.AttachAnalysis(ctx, t2, analysis.NewVector([]float64{1, 1}, 120, -8))

	// A writer commits between every compute and commit
	calls := 0
	lib.beforeCommit = func() {
		calls++
		mustIngest(t, lib, beat(10+calls, "Filler"))
	}
	_, err := lib.Recommend(ctx, t1, 5)
	if !errors.Is(err, util.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly one retry, got %d attempts", calls)
	}
	if edges := lib.Stats().Index.Edges; edges != 0 {
		t.Errorf("stale edges must not be cached, got %d", edges)
	}

	// One lost race is absorbed by the retry
	calls = 0
	lib.beforeCommit = func() {
		calls++
		if calls == 1 {
			mustIngest(t, lib, beat(20, "Late"))
		}
	}
	recs, err := lib.Recommend(ctx, t1, 5)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(recs) != 1 || recs[0].TrackID != t2 {
		t.Errorf("unexpected recommendations: %+v", recs)
	}
}

func TestReindexStaleSnapshot(t *testing.T) {
	lib, _ := openMemory(t, nil)
	mustIngest(t, lib, beat(1, "Mirror in the Bathroom"))

	n := 0
	lib.beforeCommit = func() {
		n++
		mustIngest(t, lib, beat(1+n, "Racer"))
	}
	if _, err := lib.Reindex(context.Background()); !errors.Is(err, util.ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot, got %v", err)
	}
	lib.beforeCommit = nil

	// The failed rebuild left the incremental indices intact
	checkIntegrity(t, lib)
}

func TestInconsistentIndexRecovery(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()
	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID

	lib.mu.Lock()
	lib.coord.MarkInconsistent(errors.New("simulated divergence"))
	lib.mu.Unlock()

	if _, err := lib.Search(search.ParseQuery("mirror", 10, 0)); !errors.Is(err, util.ErrInconsistent) {
		t.Errorf("expected ErrInconsistent from search, got %v", err)
	}
	if _, err := lib.Recommend(ctx, t1, 3); !errors.Is(err, util.ErrInconsistent) {
		t.Errorf("expected ErrInconsistent from recommend, got %v", err)
	}

	// Writes still go through
	mustIngest(t, lib, beat(2, "Hands Off She's Mine"))

	res, err := lib.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if res.Documents != 4 { // artist, album, two tracks
		t.Errorf("expected 4 documents, got %d", res.Documents)
	}
	if err := lib.Consistent(); err != nil {
		t.Errorf("expected consistent after reindex, got %v", err)
	}
	if refs := searchRefs(t, lib, "hands"); len(refs) != 1 {
		t.Errorf("expected the track written while inconsistent to be searchable, got %v", refs)
	}
	stats := lib.Stats().Index
	if stats.IndexedSeq != stats.AppliedSeq {
		t.Errorf("expected every applied change indexed, applied %d indexed %d", stats.AppliedSeq, stats.IndexedSeq)
	}
}

func TestRetainPolicy(t *testing.T) {
	lib, _ := openMemory(t, func(c *config.Config) { c.OnEmptyAlbum = catalog.RetainEmptyAlbums })
	ctx := context.Background()

	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID
	if _, err := lib.RemoveTrack(ctx, t1); err != nil {
		t.Fatalf("RemoveTrack failed: %v", err)
	}
	checkIntegrity(t, lib)

	stats := lib.Stats().Catalog
	if stats.Albums != 1 || stats.Artists != 1 || stats.Tracks != 0 {
		t.Errorf("expected album and artist retained, got %+v", stats)
	}
	if refs := searchRefs(t, lib, "First"); len(refs) != 1 || refs[0].Kind != catalog.KindAlbum {
		t.Errorf("expected only the retained album to match, got %v", refs)
	}
}

func TestFailedCommitIsAtomic(t *testing.T) {
	lib, repo := openMemory(t, nil)
	ctx := context.Background()

	mustIngest(t, lib, beat(1, "Mirror in the Bathroom"))
	before := lib.Stats()

	repo.FailCommit = errors.New("disk full")
	if _, err := lib.Ingest(ctx, beat(2, "Hands Off She's Mine")); err == nil {
		t.Fatal("expected the failed commit to surface")
	}

	after := lib.Stats()
	if after.Catalog != before.Catalog || after.Generation != before.Generation {
		t.Errorf("failed write leaked into memory: before %+v after %+v", before, after)
	}
	if after.Index.AppliedSeq != before.Index.AppliedSeq || after.Index.Documents != before.Index.Documents {
		t.Errorf("failed write reached the indices: before %+v after %+v", before.Index, after.Index)
	}
	if refs := searchRefs(t, lib, "hands"); len(refs) != 0 {
		t.Errorf("expected no trace of the failed ingest, got %v", refs)
	}

	// The next write succeeds and ids continue where they were
	res := mustIngest(t, lib, beat(2, "Hands Off She's Mine"))
	if res.TrackID != 2 {
		t.Errorf("expected track id 2, got %d", res.TrackID)
	}
	checkIntegrity(t, lib)
}

func TestMergeArtistsThroughLibrary(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	mustIngest(t, lib, meta.RawFileRecord{Title: "Halo", Artist: "Beyoncé", Album: "I Am", TrackNo: 1, FilePath: "/m/halo.flac"})
	mustIngest(t, lib, meta.RawFileRecord{Title: "Crazy in Love", Artist: "Beyonce", Album: "Dangerously in Love", TrackNo: 1, FilePath: "/m/crazy.flac"})

	suggestions := lib.SuggestArtistMerges(meta.JaroWinklerMatcher{}, 0.85)
	if len(suggestions) != 1 {
		t.Fatalf("expected one suggestion, got %+v", suggestions)
	}
	s := suggestions[0]
	if _, err := lib.MergeArtists(ctx, s.Keep, s.Merge); err != nil {
		t.Fatalf("MergeArtists failed: %v", err)
	}
	checkIntegrity(t, lib)

	if n := lib.Stats().Catalog.Artists; n != 1 {
		t.Errorf("expected one artist after merge, got %d", n)
	}
	// The merged spelling now resolves to the kept artist
	mustIngest(t, lib, meta.RawFileRecord{Title: "Irreplaceable", Artist: "Beyonce", Album: "B'Day", TrackNo: 1, FilePath: "/m/irr.flac"})
	if n := lib.Stats().Catalog.Artists; n != 1 {
		t.Errorf("expected alias resolution, got %d artists", n)
	}
}

func TestAnalysisRecordAndCoverArt(t *testing.T) {
	lib, _ := openMemory(t, func(c *config.Config) { c.AnalysisDimension = 3 })
	ctx := context.Background()

	rec := beat(1, "Mirror in the Bathroom")
	t1 := mustIngest(t, lib, rec).TrackID

	id, _, err := lib.AttachAnalysisRecord(ctx, meta.RawAnalysisRecord{FilePath: rec.FilePath, Features: []float64{1, 2, 3}, Tempo: 158})
	if err != nil {
		t.Fatalf("AttachAnalysisRecord failed: %v", err)
	}
	if id != t1 {
		t.Errorf("expected track %d, got %d", t1, id)
	}
	if _, _, err := lib.AttachAnalysisRecord(ctx, meta.RawAnalysisRecord{FilePath: rec.FilePath, Features: []float64{1, 2}}); !errors.Is(err, util.ErrMalformedRecord) {
		t.Errorf("expected dimension mismatch to be malformed, got %v", err)
	}

	track, _ := lib.Track(t1)
	if _, err := lib.SetCoverArt(ctx, track.AlbumID, "covers/first.jpg"); err != nil {
		t.Fatalf("SetCoverArt failed: %v", err)
	}
	album, _ := lib.Album(track.AlbumID)
	if album.CoverArtRef != "covers/first.jpg" {
		t.Errorf("cover art not stored, got %q", album.CoverArtRef)
	}
}

func TestReopenFromSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	lib, err := Open(ctx, db, config.Default(), report.NullLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	t1 := mustIngest(t, lib, beat(1, "Mirror in the Bathroom")).TrackID
	t2 := mustIngest(t, lib, beat(2, "Hands Off She's Mine")).TrackID
	lib.AttachAnalysis(ctx, t1, analysis.NewVector([]float64{0.5, 0.5}, 158, -9))
	pl, _ := lib.CreatePlaylist(ctx, "Ska")
	lib.AppendToPlaylist(ctx, pl.ID, t2)
	lib.AppendToPlaylist(ctx, pl.ID, t1)
	lib.RemoveTrack(ctx, t2)
	before := searchRefs(t, lib, "beat")

	if err := lib.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = store.Open(path)
	if err != nil {
		t.Fatalf("store reopen failed: %v", err)
	}
	lib, err = Open(ctx, db, config.Default(), report.NullLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer lib.Close()
	checkIntegrity(t, lib)

	stats := lib.Stats()
	if stats.Catalog.Tracks != 1 || stats.Catalog.Analyzed != 1 || stats.Playlists != 1 {
		t.Errorf("unexpected state after reopen: %+v", stats)
	}
	refs, err := lib.ListPlaylist(pl.ID)
	if err != nil {
		t.Fatalf("ListPlaylist failed: %v", err)
	}
	if len(refs) != 2 || !refs[0].Tombstone || refs[1].TrackID != t1 {
		t.Errorf("playlist not restored: %+v", refs)
	}

	after := searchRefs(t, lib, "beat")
	if len(after) != len(before) {
		t.Fatalf("search differs after reopen: %v vs %v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("hit %d: %v vs %v", i, before[i], after[i])
		}
	}

	// Ids are never reused
	res := mustIngest(t, lib, beat(3, "Twist and Crawl"))
	if res.TrackID <= t2 {
		t.Errorf("expected a fresh id above %d, got %d", t2, res.TrackID)
	}
}

func TestConcurrentReadersSeeWholeWrites(t *testing.T) {
	lib, _ := openMemory(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 4)

	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				err := lib.Read(func(v catalog.View) error {
					for _, tr := range v.Tracks() {
						if _, ok := v.Album(tr.AlbumID); !ok {
							return fmt.Errorf("track %d: album %d missing", tr.ID, tr.AlbumID)
						}
					}
					for _, al := range v.Albums() {
						if len(al.ArtistIDs) == 0 {
							return fmt.Errorf("album %d has no artist", al.ID)
						}
						for _, id := range al.ArtistIDs {
							if _, ok := v.Artist(id); !ok {
								return fmt.Errorf("album %d: artist %d missing", al.ID, id)
							}
						}
					}
					return nil
				})
				if err == nil {
					_, err = lib.Search(search.ParseQuery("beat", 0, 0))
				}
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	for i := 1; i <= 50; i++ {
		rec := beat(1, fmt.Sprintf("Song %d", i))
		rec.Album = fmt.Sprintf("Album %d", i)
		res, err := lib.Ingest(ctx, rec)
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if _, err := lib.RemoveTrack(ctx, res.TrackID); err != nil {
			t.Fatalf("RemoveTrack failed: %v", err)
		}
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("reader observed a partial write: %v", err)
	}
	checkIntegrity(t, lib)
}
