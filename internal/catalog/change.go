package catalog

import (
	"github.com/franz/music-catalog/internal/playlist"
)

// Op is the kind of mutation a Change records
type Op int

const (
	OpCreated Op = iota
	OpUpdated
	OpDeleted
)

func (o Op) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpUpdated:
		return "updated"
	case OpDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change is one CatalogChange: the sole input to index maintenance
type Change struct {
	Seq  uint64 `json:"seq,omitempty"` // assigned by the change log
	Op   Op     `json:"op"`
	Kind Kind   `json:"kind"`

	// Entity id. Analysis changes carry the track id.
	ID int64 `json:"id,omitempty"`

	// Playlist changes only
	PlaylistID string  `json:"playlist_id,omitempty"`
	Tracks     []int64 `json:"tracks,omitempty"`
}

// Ref returns the searchable entity the change concerns.
// ok is false for analysis and playlist changes.
func (c Change) Ref() (EntityRef, bool) {
	switch c.Kind {
	case KindArtist, KindAlbum, KindTrack:
		return EntityRef{Kind: c.Kind, ID: c.ID}, true
	}
	return EntityRef{}, false
}

// PlaylistChange converts a planned playlist mutation into a Change
func PlaylistChange(mut *playlist.Mutation) Change {
	op := OpUpdated
	switch {
	case mut.Created:
		op = OpCreated
	case mut.Deleted:
		op = OpDeleted
	}
	return Change{
		Op:         op,
		Kind:       KindPlaylist,
		PlaylistID: mut.PlaylistID,
		Tracks:     append([]int64(nil), mut.Tracks...),
	}
}

// mergeOp folds a later op on the same entity into an earlier one.
// keep is false when the entity was created and deleted in the same batch.
func mergeOp(first, next Op) (op Op, keep bool) {
	switch {
	case first == OpCreated && next == OpDeleted:
		return 0, false
	case first == OpCreated:
		return OpCreated, true
	case next == OpDeleted:
		return OpDeleted, true
	default:
		return first, true
	}
}

// changeSet accumulates entity changes in first-touch order
type changeSet struct {
	order []EntityRef
	ops   map[EntityRef]Op
	gone  map[EntityRef]bool
}

func newChangeSet() *changeSet {
	return &changeSet{
		ops:  make(map[EntityRef]Op),
		gone: make(map[EntityRef]bool),
	}
}

func (cs *changeSet) record(kind Kind, id int64, op Op) {
	ref := EntityRef{Kind: kind, ID: id}
	prev, seen := cs.ops[ref]
	if !seen {
		cs.order = append(cs.order, ref)
		cs.ops[ref] = op
		return
	}
	if cs.gone[ref] {
		// created and deleted already; ids are never reused
		return
	}
	merged, keep := mergeOp(prev, op)
	if !keep {
		cs.gone[ref] = true
		return
	}
	cs.ops[ref] = merged
}

func (cs *changeSet) changes() []Change {
	out := make([]Change, 0, len(cs.order))
	for _, ref := range cs.order {
		if cs.gone[ref] {
			continue
		}
		out = append(out, Change{Op: cs.ops[ref], Kind: ref.Kind, ID: ref.ID})
	}
	return out
}
