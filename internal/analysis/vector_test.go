package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/franz/music-catalog/internal/util"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
		ok       bool
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1, true},
		{"scaled", []float64{1, 2, 3}, []float64{2, 4, 6}, 1, true},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.5, true},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, 0, true},
		{"dimension mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0, false},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0, false},
		{"empty", nil, nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, ok := Similarity(Vector{Features: tt.a}, Vector{Features: tt.b})
			if ok != tt.ok {
				t.Fatalf("ok = %v, expected %v", ok, tt.ok)
			}
			if math.Abs(sim-tt.expected) > 1e-9 {
				t.Errorf("similarity = %v, expected %v", sim, tt.expected)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := Vector{Features: []float64{0.3, -1.2, 4.5, 0.01}}
	b := Vector{Features: []float64{2.2, 0.4, -0.7, 3.3}}

	ab, _ := Similarity(a, b)
	ba, _ := Similarity(b, a)
	if ab != ba {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		v     Vector
		dim   int
		valid bool
	}{
		{"ok any dimension", Vector{Features: []float64{1, 2}, Tempo: 120}, 0, true},
		{"ok fixed dimension", Vector{Features: []float64{1, 2, 3}}, 3, true},
		{"empty", Vector{}, 0, false},
		{"wrong dimension", Vector{Features: []float64{1, 2}}, 3, false},
		{"nan feature", Vector{Features: []float64{math.NaN()}}, 0, false},
		{"inf feature", Vector{Features: []float64{math.Inf(1)}}, 0, false},
		{"negative tempo", Vector{Features: []float64{1}, Tempo: -1}, 0, false},
		{"nan loudness", Vector{Features: []float64{1}, Loudness: math.NaN()}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate(tt.dim)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, util.ErrMalformedRecord) {
				t.Errorf("expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestNewVectorCopiesFeatures(t *testing.T) {
	features := []float64{1, 2, 3}
	v := NewVector(features, 100, -8)
	features[0] = 99

	if v.Features[0] != 1 {
		t.Error("NewVector must not alias the caller's slice")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Put(1, Vector{Features: []float64{1}})
	s.Put(2, Vector{Features: []float64{2}})

	snap := s.Snapshot()
	s.Delete(1)

	if _, ok := s.Get(1); ok {
		t.Error("vector 1 should be gone")
	}
	if _, ok := snap[1]; !ok {
		t.Error("snapshot should be unaffected by later deletes")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 vector, got %d", s.Len())
	}
}
