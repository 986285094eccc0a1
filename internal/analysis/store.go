package analysis

// Store maps track ids to their analysis vector.
// Not safe for concurrent mutation; the library serializes writers.
type Store struct {
	vectors map[int64]Vector
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{vectors: make(map[int64]Vector)}
}

// Get returns the vector attached to a track
func (s *Store) Get(trackID int64) (Vector, bool) {
	v, ok := s.vectors[trackID]
	return v, ok
}

// Put attaches (or replaces) a track's vector
func (s *Store) Put(trackID int64, v Vector) {
	s.vectors[trackID] = v
}

// Delete detaches a track's vector
func (s *Store) Delete(trackID int64) {
	delete(s.vectors, trackID)
}

// Len returns the number of analysed tracks
func (s *Store) Len() int {
	return len(s.vectors)
}

// Snapshot copies the id -> vector mapping. Vectors are immutable so they
// are shared, not deep-copied.
func (s *Store) Snapshot() map[int64]Vector {
	out := make(map[int64]Vector, len(s.vectors))
	for id, v := range s.vectors {
		out[id] = v
	}
	return out
}
