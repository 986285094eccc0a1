// Package index keeps the derived search index and recommendation cache
// consistent with the catalog.
//
// Every committed mutation reaches the indices as a sequence of
// CatalogChanges. Search documents are updated synchronously; recommendation
// edges are only invalidated and recomputed lazily. A full rebuild from the
// catalog is the recovery path whenever the two are found to diverge.
package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/recommend"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/util"
	"github.com/sourcegraph/conc/iter"
)

// Options configures a Coordinator
type Options struct {
	MinTokenLen int
	Recommend   recommend.Options

	// Goroutines used to build documents during a rebuild (0 = GOMAXPROCS)
	Workers int

	LogCapacity int
}

// Coordinator fans CatalogChanges out to the search index and the
// recommendation engine. Apply and Swap need the catalog's exclusive lock;
// Search, Engine and Consistent may run under the shared lock.
type Coordinator struct {
	opts   Options
	log    *ChangeLog
	index  *search.Index
	engine *recommend.Engine

	// non-nil once the indices are known to diverge from the catalog
	broken error
}

// New creates a coordinator with empty indices
func New(opts Options) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Coordinator{
		opts:   opts,
		log:    NewChangeLog(opts.LogCapacity),
		index:  search.New(search.NewTokenizer(opts.MinTokenLen)),
		engine: recommend.NewEngine(opts.Recommend),
	}
}

// Log returns the change log
func (c *Coordinator) Log() *ChangeLog {
	return c.log
}

// Begin logs changes as Pending and returns them with sequence numbers
func (c *Coordinator) Begin(changes []catalog.Change) []catalog.Change {
	return c.log.Append(changes)
}

// Abort drops pending changes whose write failed
func (c *Coordinator) Abort(changes []catalog.Change) {
	c.log.Discard(changes)
}

// Apply brings the indices up to date with committed changes. view must
// already reflect them. Album and artist updates cascade to the documents
// that embed their names. A document that cannot be built marks the
// indices inconsistent; the error is returned and also reported by every
// later query until Swap installs a rebuild.
func (c *Coordinator) Apply(view catalog.View, changes []catalog.Change) error {
	if len(changes) == 0 {
		return nil
	}
	last := changes[len(changes)-1].Seq
	c.log.MarkApplied(last)

	refs := make(map[catalog.EntityRef]struct{})
	add := func(kind catalog.Kind, id int64) {
		refs[catalog.EntityRef{Kind: kind, ID: id}] = struct{}{}
	}

	for _, ch := range changes {
		switch ch.Kind {
		case catalog.KindTrack:
			add(catalog.KindTrack, ch.ID)
			if ch.Op == catalog.OpDeleted {
				c.engine.Invalidate(ch.ID)
			}
		case catalog.KindAlbum:
			add(catalog.KindAlbum, ch.ID)
			if ch.Op == catalog.OpUpdated {
				for _, t := range view.AlbumTracks(ch.ID) {
					add(catalog.KindTrack, t.ID)
				}
			}
		case catalog.KindArtist:
			add(catalog.KindArtist, ch.ID)
			if ch.Op == catalog.OpUpdated {
				for _, a := range view.ArtistAlbums(ch.ID) {
					add(catalog.KindAlbum, a.ID)
					for _, t := range view.AlbumTracks(a.ID) {
						add(catalog.KindTrack, t.ID)
					}
				}
				for _, t := range view.ArtistTracks(ch.ID) {
					add(catalog.KindTrack, t.ID)
				}
			}
		case catalog.KindAnalysis:
			c.engine.Invalidate(ch.ID)
		case catalog.KindPlaylist:
			if dropped := c.engine.NoteMembershipShift(ch.Tracks); len(dropped) > 0 {
				util.DebugLog("Playlist %s: invalidated edges of %d tracks", ch.PlaylistID, len(dropped))
			}
		}
	}

	ordered := make([]catalog.EntityRef, 0, len(refs))
	for ref := range refs {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	var failures []error
	for _, ref := range ordered {
		doc, ok, err := DocumentFor(view, ref)
		switch {
		case err != nil:
			failures = append(failures, err)
		case !ok:
			c.index.Remove(ref)
		default:
			c.index.Index(doc)
		}
	}

	if len(failures) > 0 {
		err := fmt.Errorf("%w: %d documents could not be built: %w",
			util.ErrInconsistent, len(failures), errors.Join(failures...))
		c.markBroken(err)
		return err
	}

	c.log.MarkIndexed(last)
	return nil
}

func (c *Coordinator) markBroken(err error) {
	if c.broken == nil {
		util.WarnLog("Indices marked inconsistent: %v", err)
	}
	c.broken = err
}

// MarkInconsistent forces the inconsistent state, e.g. after a failed
// integrity check of the catalog itself
func (c *Coordinator) MarkInconsistent(reason error) {
	c.markBroken(fmt.Errorf("%w: %w", util.ErrInconsistent, reason))
}

// Consistent returns nil, or an error wrapping util.ErrInconsistent when a
// rebuild is required before queries are served
func (c *Coordinator) Consistent() error {
	return c.broken
}

// Search runs a query against the index
func (c *Coordinator) Search(q search.Query) ([]search.Hit, error) {
	if c.broken != nil {
		return nil, c.broken
	}
	return c.index.Query(q), nil
}

// Engine returns the recommendation engine
func (c *Coordinator) Engine() (*recommend.Engine, error) {
	if c.broken != nil {
		return nil, c.broken
	}
	return c.engine, nil
}

// Stats describes the indices
type Stats struct {
	Documents   int    `json:"documents"`
	Terms       int    `json:"terms"`
	Edges       int    `json:"edges"`
	AppliedSeq  uint64 `json:"applied_seq"`
	IndexedSeq  uint64 `json:"indexed_seq"`
	Consistent  bool   `json:"consistent"`
	LogRetained int    `json:"log_retained"`
}

// Stats reports index sizes and change-log progress
func (c *Coordinator) Stats() Stats {
	return Stats{
		Documents:   c.index.Len(),
		Terms:       c.index.Terms(),
		Edges:       c.engine.Edges(),
		AppliedSeq:  c.log.AppliedSeq(),
		IndexedSeq:  c.log.IndexedSeq(),
		Consistent:  c.broken == nil,
		LogRetained: c.log.Len(),
	}
}

// Built is a freshly rebuilt set of indices waiting to be swapped in
type Built struct {
	Index  *search.Index
	Engine *recommend.Engine
}

// Build derives fresh indices from a catalog snapshot. Documents are built
// in parallel; the snapshot must not change while Build runs.
func (c *Coordinator) Build(ctx context.Context, view catalog.View) (*Built, error) {
	refs := allRefs(view)

	mapper := iter.Mapper[catalog.EntityRef, *search.Document]{MaxGoroutines: c.opts.Workers}
	docs, err := mapper.MapErr(refs, func(ref *catalog.EntityRef) (*search.Document, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, _, err := DocumentFor(view, *ref)
		return doc, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build documents: %w", err)
	}

	ix := search.New(search.NewTokenizer(c.opts.MinTokenLen))
	for _, doc := range docs {
		if doc != nil {
			ix.Index(doc)
		}
	}

	return &Built{Index: ix, Engine: recommend.NewEngine(c.opts.Recommend)}, nil
}

// Swap installs rebuilt indices and clears the inconsistent state.
// Every applied change is indexed from here on.
func (c *Coordinator) Swap(b *Built) {
	c.index = b.Index
	c.engine = b.Engine
	c.broken = nil
	c.log.MarkIndexed(c.log.AppliedSeq())
}

// Verify compares the live search index with one derived from view and the
// edge cache with fresh scores. Divergence marks the indices inconsistent.
func (c *Coordinator) Verify(view catalog.View, snap *recommend.Snapshot) error {
	var problems []string

	want := make(map[catalog.EntityRef]*search.Document)
	for _, ref := range allRefs(view) {
		doc, _, err := DocumentFor(view, ref)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		want[ref] = doc
	}

	for _, have := range c.index.Documents() {
		expected, ok := want[have.Ref]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("stale document %s", have.Ref))
		case !have.Equal(expected):
			problems = append(problems, fmt.Sprintf("outdated document %s", have.Ref))
		}
		delete(want, have.Ref)
	}
	for ref := range want {
		problems = append(problems, fmt.Sprintf("missing document %s", ref))
	}

	if snap != nil {
		for _, p := range c.engine.Stale(snap) {
			problems = append(problems, fmt.Sprintf("stale edge %d-%d", p.A, p.B))
		}
	}

	if len(problems) == 0 {
		return c.broken
	}
	sort.Strings(problems)
	if len(problems) > 10 {
		problems = append(problems[:10], fmt.Sprintf("... and %d more", len(problems)-10))
	}
	err := fmt.Errorf("%w: %s", util.ErrInconsistent, strings.Join(problems, "; "))
	c.markBroken(err)
	return err
}
