package index

import (
	"sync"

	"github.com/franz/music-catalog/internal/catalog"
)

// State is where a change stands on its way into the indices
type State int

const (
	// Pending: logged, not yet committed to the catalog
	Pending State = iota
	// Applied: committed to the repository and the graph
	Applied
	// Indexed: reflected in the search index and recommendation cache
	Indexed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Applied:
		return "applied"
	case Indexed:
		return "indexed"
	}
	return "unknown"
}

// Entry is one logged change
type Entry struct {
	Change catalog.Change
	State  State
}

// DefaultLogCapacity bounds how many indexed entries are retained
const DefaultLogCapacity = 4096

// ChangeLog sequences CatalogChanges and tracks each through
// Pending -> Applied -> Indexed. Sequence numbers are never reused.
type ChangeLog struct {
	mu       sync.Mutex
	entries  []Entry
	next     uint64
	applied  uint64
	indexed  uint64
	capacity int
}

// NewChangeLog creates a log retaining up to capacity indexed entries
func NewChangeLog(capacity int) *ChangeLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &ChangeLog{next: 1, capacity: capacity}
}

// Append assigns sequence numbers and logs the changes as Pending
func (l *ChangeLog) Append(changes []catalog.Change) []catalog.Change {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]catalog.Change, len(changes))
	for i, c := range changes {
		c.Seq = l.next
		l.next++
		out[i] = c
		l.entries = append(l.entries, Entry{Change: c, State: Pending})
	}
	return out
}

// Discard drops pending changes whose write was abandoned
func (l *ChangeLog) Discard(changes []catalog.Change) {
	if len(changes) == 0 {
		return
	}
	drop := make(map[uint64]bool, len(changes))
	for _, c := range changes {
		drop[c.Seq] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.State == Pending && drop[e.Change.Seq] {
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
}

// MarkApplied moves pending entries up to seq to Applied
func (l *ChangeLog) MarkApplied(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].Change.Seq <= seq && l.entries[i].State == Pending {
			l.entries[i].State = Applied
		}
	}
	if seq > l.applied {
		l.applied = seq
	}
}

// MarkIndexed moves applied entries up to seq to Indexed
func (l *ChangeLog) MarkIndexed(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].Change.Seq <= seq && l.entries[i].State == Applied {
			l.entries[i].State = Indexed
		}
	}
	if seq > l.indexed {
		l.indexed = seq
	}
	l.trim()
}

// trim drops the oldest indexed entries beyond capacity
func (l *ChangeLog) trim() {
	excess := len(l.entries) - l.capacity
	n := 0
	for n < excess && l.entries[n].State == Indexed {
		n++
	}
	if n > 0 {
		l.entries = append([]Entry(nil), l.entries[n:]...)
	}
}

// AppliedSeq returns the highest sequence committed to the catalog
func (l *ChangeLog) AppliedSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied
}

// IndexedSeq returns the highest sequence reflected in the indices
func (l *ChangeLog) IndexedSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexed
}

// Since returns retained entries with a sequence greater than seq
func (l *ChangeLog) Since(seq uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Change.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of retained entries
func (l *ChangeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
