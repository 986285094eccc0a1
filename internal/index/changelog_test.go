package index

import (
	"testing"

	"github.com/franz/music-catalog/internal/catalog"
)

func changes(n int) []catalog.Change {
	out := make([]catalog.Change, n)
	for i := range out {
		out[i] = catalog.Change{Op: catalog.OpCreated, Kind: catalog.KindTrack, ID: int64(i + 1)}
	}
	return out
}

func TestChangeLogStates(t *testing.T) {
	l := NewChangeLog(0)

	first := l.Append(changes(2))
	if first[0].Seq != 1 || first[1].Seq != 2 {
		t.Fatalf("sequence numbers = %d, %d", first[0].Seq, first[1].Seq)
	}

	l.MarkApplied(2)
	if l.AppliedSeq() != 2 || l.IndexedSeq() != 0 {
		t.Errorf("applied=%d indexed=%d", l.AppliedSeq(), l.IndexedSeq())
	}
	for _, e := range l.Since(0) {
		if e.State != Applied {
			t.Errorf("entry %d is %v, want applied", e.Change.Seq, e.State)
		}
	}

	l.MarkIndexed(2)
	if l.IndexedSeq() != 2 {
		t.Errorf("indexed = %d", l.IndexedSeq())
	}
}

func TestChangeLogDiscardKeepsSequence(t *testing.T) {
	l := NewChangeLog(0)
	aborted := l.Append(changes(2))
	l.Discard(aborted)

	if l.Len() != 0 {
		t.Fatalf("discarded entries retained: %d", l.Len())
	}
	next := l.Append(changes(1))
	if next[0].Seq != 3 {
		t.Errorf("sequence numbers must not be reused, got %d", next[0].Seq)
	}
}

func TestChangeLogTrimsIndexedEntries(t *testing.T) {
	l := NewChangeLog(3)
	l.Append(changes(5))
	l.MarkApplied(5)
	l.MarkIndexed(5)

	if l.Len() != 3 {
		t.Errorf("retained %d entries, want 3", l.Len())
	}
	if since := l.Since(0); since[0].Change.Seq != 3 {
		t.Errorf("oldest retained seq = %d, want 3", since[0].Change.Seq)
	}
}
