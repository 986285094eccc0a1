// Package analysis holds the per-track acoustic feature vectors produced by
// the external decoder and the similarity measure computed over them.
package analysis

import (
	"fmt"
	"math"

	"github.com/franz/music-catalog/internal/util"
)

// Vector is an immutable acoustic summary of one track.
// It is replaced wholesale on re-analysis, never edited.
type Vector struct {
	Features []float64 `json:"features"`
	Tempo    float64   `json:"tempo"`
	Loudness float64   `json:"loudness"`
}

// NewVector copies features so later edits by the caller cannot leak in
func NewVector(features []float64, tempo, loudness float64) Vector {
	f := make([]float64, len(features))
	copy(f, features)
	return Vector{Features: f, Tempo: tempo, Loudness: loudness}
}

// Dim returns the feature dimension
func (v Vector) Dim() int {
	return len(v.Features)
}

// Validate checks the vector is usable. dim > 0 enforces a fixed dimension.
func (v Vector) Validate(dim int) error {
	if len(v.Features) == 0 {
		return fmt.Errorf("%w: empty feature vector", util.ErrMalformedRecord)
	}
	if dim > 0 && len(v.Features) != dim {
		return fmt.Errorf("%w: feature vector has %d dimensions, expected %d",
			util.ErrMalformedRecord, len(v.Features), dim)
	}
	for i, f := range v.Features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: feature %d is not finite", util.ErrMalformedRecord, i)
		}
	}
	if math.IsNaN(v.Tempo) || math.IsInf(v.Tempo, 0) || v.Tempo < 0 {
		return fmt.Errorf("%w: invalid tempo %v", util.ErrMalformedRecord, v.Tempo)
	}
	if math.IsNaN(v.Loudness) || math.IsInf(v.Loudness, 0) {
		return fmt.Errorf("%w: invalid loudness %v", util.ErrMalformedRecord, v.Loudness)
	}
	return nil
}

// Similarity maps cosine distance between two vectors onto [0,1]:
// identical direction is 1, opposite is 0.
// ok is false when the vectors cannot be compared (dimension mismatch or a
// zero-norm vector); callers then treat the acoustic signal as absent.
func Similarity(a, b Vector) (sim float64, ok bool) {
	if len(a.Features) == 0 || len(a.Features) != len(b.Features) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a.Features {
		dot += a.Features[i] * b.Features[i]
		normA += a.Features[i] * a.Features[i]
		normB += b.Features[i] * b.Features[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp float drift
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}

	distance := 1 - cos // [0,2]
	return 1 - distance/2, true
}
