// Package playlist manages user-ordered lists of track references.
//
// Positions are a dense 0-based sequence. A reference to a track that has
// been removed from the catalog stays in place as a tombstone, so deleting a
// track never renumbers anyone's playlist.
//
// Operations are split into Plan* (validate, compute the new state, no side
// effects) and Apply (install a planned state). The library persists the plan
// between the two so a failed write leaves the manager untouched.
package playlist

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/franz/music-catalog/internal/util"
	"github.com/google/uuid"
)

// Entry is one position in a playlist
type Entry struct {
	TrackID   int64 `json:"track_id"`
	Tombstone bool  `json:"tombstone,omitempty"`
}

// Playlist is an ordered sequence of track references. Duplicates are allowed.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.Entries = make([]Entry, len(p.Entries))
	copy(c.Entries, p.Entries)
	return &c
}

// Len returns the number of positions, tombstones included
func (p *Playlist) Len() int {
	return len(p.Entries)
}

// TrackRef is what callers see at a position: a live track or a tombstone
type TrackRef struct {
	Position  int   `json:"position"`
	TrackID   int64 `json:"track_id"`
	Tombstone bool  `json:"tombstone,omitempty"`
}

// TrackResolver answers whether a track id is live in the catalog
type TrackResolver interface {
	HasTrack(id int64) bool
}

// Mutation is a planned change to one playlist
type Mutation struct {
	PlaylistID string
	Playlist   *Playlist // new state; nil when Deleted
	Created    bool
	Deleted    bool

	// Tracks whose playlist membership may have shifted. Feeds
	// co-occurrence invalidation in the recommender.
	Tracks []int64
}

// Manager holds every playlist. Not safe for concurrent mutation; the
// library serializes writers and shares readers.
type Manager struct {
	playlists map[string]*Playlist

	// track id -> playlist id -> number of live entries
	byTrack map[int64]map[string]int

	now   func() time.Time
	newID func() string
}

// NewManager creates an empty manager
func NewManager() *Manager {
	return &Manager{
		playlists: make(map[string]*Playlist),
		byTrack:   make(map[int64]map[string]int),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Load replaces the manager's contents with persisted playlists
func (m *Manager) Load(playlists []*Playlist) {
	m.playlists = make(map[string]*Playlist, len(playlists))
	m.byTrack = make(map[int64]map[string]int)
	for _, p := range playlists {
		m.install(p.Clone())
	}
}

// Get returns a playlist by id. The returned value must not be modified.
func (m *Manager) Get(id string) (*Playlist, bool) {
	p, ok := m.playlists[id]
	return p, ok
}

// All returns every playlist ordered by name, then id
func (m *Manager) All() []*Playlist {
	out := make([]*Playlist, 0, len(m.playlists))
	for _, p := range m.playlists {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of playlists
func (m *Manager) Len() int {
	return len(m.playlists)
}

// PlanCreate plans a new empty playlist
func (m *Manager) PlanCreate(name string) (*Mutation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &util.EntityError{Op: "create", Entity: "playlist", Err: fmt.Errorf("%w: empty name", util.ErrMalformedRecord)}
	}

	now := m.now()
	p := &Playlist{
		ID:        m.newID(),
		Name:      name,
		Entries:   []Entry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return &Mutation{PlaylistID: p.ID, Playlist: p, Created: true}, nil
}

// PlanRename plans a name change
func (m *Manager) PlanRename(id, name string) (*Mutation, error) {
	p, err := m.lookup("rename", id)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &util.EntityError{Op: "rename", Entity: "playlist", ID: id, Err: fmt.Errorf("%w: empty name", util.ErrMalformedRecord)}
	}

	next := p.Clone()
	next.Name = name
	next.UpdatedAt = m.now()
	return &Mutation{PlaylistID: id, Playlist: next}, nil
}

// PlanDelete plans removal of a whole playlist
func (m *Manager) PlanDelete(id string) (*Mutation, error) {
	p, err := m.lookup("delete", id)
	if err != nil {
		return nil, err
	}
	return &Mutation{PlaylistID: id, Deleted: true, Tracks: liveTracks(p)}, nil
}

// PlanInsert plans inserting trackID at position (0..Len inclusive)
func (m *Manager) PlanInsert(id string, position int, trackID int64, tracks TrackResolver) (*Mutation, error) {
	p, err := m.lookup("insert", id)
	if err != nil {
		return nil, err
	}
	if position < 0 || position > len(p.Entries) {
		return nil, outOfRange("insert", id, position, len(p.Entries))
	}
	if tracks != nil && !tracks.HasTrack(trackID) {
		return nil, &util.EntityError{Op: "insert", Entity: "track", ID: strconv.FormatInt(trackID, 10), Err: util.ErrUnknownTrack}
	}

	next := p.Clone()
	next.Entries = append(next.Entries, Entry{})
	copy(next.Entries[position+1:], next.Entries[position:])
	next.Entries[position] = Entry{TrackID: trackID}
	next.UpdatedAt = m.now()

	return &Mutation{PlaylistID: id, Playlist: next, Tracks: []int64{trackID}}, nil
}

// PlanMove plans moving the entry at from so it ends up at to.
// Entries in between shift by one. to == Len moves the entry to the end.
func (m *Manager) PlanMove(id string, from, to int) (*Mutation, error) {
	p, err := m.lookup("move", id)
	if err != nil {
		return nil, err
	}
	n := len(p.Entries)
	if from < 0 || from >= n {
		return nil, outOfRange("move", id, from, n)
	}
	if to < 0 || to > n {
		return nil, outOfRange("move", id, to, n)
	}
	if to == n {
		to = n - 1
	}

	next := p.Clone()
	e := next.Entries[from]
	if from < to {
		copy(next.Entries[from:to], next.Entries[from+1:to+1])
	} else {
		copy(next.Entries[to+1:from+1], next.Entries[to:from])
	}
	next.Entries[to] = e
	next.UpdatedAt = m.now()

	// Order does not affect co-occurrence, so no tracks shift
	return &Mutation{PlaylistID: id, Playlist: next}, nil
}

// PlanRemoveAt plans removing the entry at position (0..Len-1)
func (m *Manager) PlanRemoveAt(id string, position int) (*Mutation, error) {
	p, err := m.lookup("remove_at", id)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= len(p.Entries) {
		return nil, outOfRange("remove_at", id, position, len(p.Entries))
	}

	next := p.Clone()
	removed := next.Entries[position]
	next.Entries = append(next.Entries[:position], next.Entries[position+1:]...)
	next.UpdatedAt = m.now()

	mut := &Mutation{PlaylistID: id, Playlist: next}
	if !removed.Tombstone {
		mut.Tracks = []int64{removed.TrackID}
	}
	return mut, nil
}

// PlanTombstoneTrack plans turning every live reference to trackID into a
// tombstone. Positions and lengths are unchanged.
func (m *Manager) PlanTombstoneTrack(trackID int64) []*Mutation {
	ids := make([]string, 0, len(m.byTrack[trackID]))
	for id := range m.byTrack[trackID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	muts := make([]*Mutation, 0, len(ids))
	now := m.now()
	for _, id := range ids {
		next := m.playlists[id].Clone()
		for i := range next.Entries {
			if next.Entries[i].TrackID == trackID {
				next.Entries[i].Tombstone = true
			}
		}
		next.UpdatedAt = now
		muts = append(muts, &Mutation{PlaylistID: id, Playlist: next, Tracks: []int64{trackID}})
	}
	return muts
}

// Apply installs a planned mutation
func (m *Manager) Apply(mut *Mutation) {
	if old, ok := m.playlists[mut.PlaylistID]; ok {
		m.uninstall(old)
	}
	if mut.Deleted {
		return
	}
	m.install(mut.Playlist)
}

// List returns the playlist's positions in order. A reference the resolver no
// longer knows is reported as a tombstone even if it was never marked.
func (m *Manager) List(id string, tracks TrackResolver) ([]TrackRef, error) {
	p, err := m.lookup("list", id)
	if err != nil {
		return nil, err
	}

	refs := make([]TrackRef, len(p.Entries))
	for i, e := range p.Entries {
		tomb := e.Tombstone
		if !tomb && tracks != nil && !tracks.HasTrack(e.TrackID) {
			tomb = true
		}
		refs[i] = TrackRef{Position: i, TrackID: e.TrackID, Tombstone: tomb}
	}
	return refs, nil
}

// PlaylistsContaining returns the ids of playlists with a live entry for the track
func (m *Manager) PlaylistsContaining(trackID int64) []string {
	ids := make([]string, 0, len(m.byTrack[trackID]))
	for id := range m.byTrack[trackID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Membership copies the track -> playlist set mapping (live entries only)
func (m *Manager) Membership() map[int64]map[string]struct{} {
	out := make(map[int64]map[string]struct{}, len(m.byTrack))
	for trackID, lists := range m.byTrack {
		set := make(map[string]struct{}, len(lists))
		for id := range lists {
			set[id] = struct{}{}
		}
		out[trackID] = set
	}
	return out
}

func (m *Manager) lookup(op, id string) (*Playlist, error) {
	p, ok := m.playlists[id]
	if !ok {
		return nil, &util.EntityError{Op: op, Entity: "playlist", ID: id, Err: util.ErrUnknownPlaylist}
	}
	return p, nil
}

func (m *Manager) install(p *Playlist) {
	m.playlists[p.ID] = p
	for _, e := range p.Entries {
		if e.Tombstone {
			continue
		}
		if m.byTrack[e.TrackID] == nil {
			m.byTrack[e.TrackID] = make(map[string]int)
		}
		m.byTrack[e.TrackID][p.ID]++
	}
}

func (m *Manager) uninstall(p *Playlist) {
	delete(m.playlists, p.ID)
	for _, e := range p.Entries {
		if e.Tombstone {
			continue
		}
		lists := m.byTrack[e.TrackID]
		lists[p.ID]--
		if lists[p.ID] <= 0 {
			delete(lists, p.ID)
		}
		if len(lists) == 0 {
			delete(m.byTrack, e.TrackID)
		}
	}
}

func liveTracks(p *Playlist) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, e := range p.Entries {
		if !e.Tombstone && !seen[e.TrackID] {
			seen[e.TrackID] = true
			out = append(out, e.TrackID)
		}
	}
	return out
}

func outOfRange(op, id string, position, length int) error {
	return &util.EntityError{
		Op:     op,
		Entity: "playlist",
		ID:     id,
		Err:    fmt.Errorf("%w: position %d, length %d", util.ErrOutOfRange, position, length),
	}
}
