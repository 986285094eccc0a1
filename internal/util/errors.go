package util

import "errors"

// Sentinel errors for the catalog engine's failure modes.
// Callers match them with errors.Is; the catalog wraps them with the
// offending entity id (see EntityError).
var (
	// ErrMalformedRecord indicates a raw record is missing mandatory fields
	// or carries invalid values. The caller's data is at fault.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownTrack indicates a referenced track id does not exist
	ErrUnknownTrack = errors.New("unknown track")

	// ErrUnknownAlbum indicates a referenced album id does not exist
	ErrUnknownAlbum = errors.New("unknown album")

	// ErrUnknownArtist indicates a referenced artist id does not exist
	ErrUnknownArtist = errors.New("unknown artist")

	// ErrUnknownPlaylist indicates a referenced playlist id does not exist
	ErrUnknownPlaylist = errors.New("unknown playlist")

	// ErrOutOfRange indicates a playlist position is invalid
	ErrOutOfRange = errors.New("position out of range")

	// ErrStaleSnapshot indicates an index recomputation kept racing with
	// writers. Retryable; the catalog is unaffected.
	ErrStaleSnapshot = errors.New("stale snapshot")

	// ErrInconsistent indicates the derived indices diverged from the
	// catalog. Queries fail until a full reindex has run.
	ErrInconsistent = errors.New("index inconsistent with catalog")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)

// EntityError ties a failure to the entity it concerns.
// errors.Is sees through it to the sentinel in Err.
type EntityError struct {
	Op     string // operation, e.g. "remove_track"
	Entity string // entity kind, e.g. "track"
	ID     string // offending entity id
	Err    error
}

func (e *EntityError) Error() string {
	if e.ID == "" {
		return e.Op + " " + e.Entity + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Entity + " " + e.ID + ": " + e.Err.Error()
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
