// Package report writes the catalog's audit trail: a JSONL event per
// committed change or reindex, plus a Markdown summary of catalog state.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/franz/music-catalog/internal/catalog"
)

// EventType represents the type of event
type EventType string

const (
	EventChange       EventType = "catalog_change"
	EventReindex      EventType = "reindex"
	EventInconsistent EventType = "inconsistent"
	EventRejected     EventType = "rejected"
	EventError        EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a level name to an EventLevel; unknown names give LevelInfo
func ParseLevel(s string) EventLevel {
	if _, ok := levelPriority[EventLevel(s)]; ok {
		return EventLevel(s)
	}
	return LevelInfo
}

// Event represents a single audit entry
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	Seq        uint64            `json:"seq,omitempty"`
	Op         string            `json:"op,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	EntityID   int64             `json:"entity_id,omitempty"`
	PlaylistID string            `json:"playlist_id,omitempty"`
	Tracks     []int64           `json:"tracks,omitempty"`
	SrcPath    string            `json:"src_path,omitempty"`
	Generation uint64            `json:"generation,omitempty"`
	Duration   int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogChange records one committed catalog change
func (l *EventLogger) LogChange(c catalog.Change, generation uint64) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventChange,
		Seq:        c.Seq,
		Op:         c.Op.String(),
		Kind:       c.Kind.String(),
		EntityID:   c.ID,
		PlaylistID: c.PlaylistID,
		Tracks:     c.Tracks,
		Generation: generation,
	})
}

// LogChanges records every change of one committed operation, in order
func (l *EventLogger) LogChanges(changes []catalog.Change, generation uint64) error {
	for _, c := range changes {
		if err := l.LogChange(c, generation); err != nil {
			return err
		}
	}
	return nil
}

// LogReindex records a full index rebuild
func (l *EventLogger) LogReindex(documents, edges int, generation uint64, duration time.Duration, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:      level,
		Event:      EventReindex,
		Generation: generation,
		Duration:   duration.Milliseconds(),
		Error:      errMsg,
		Extra: map[string]string{
			"documents": fmt.Sprintf("%d", documents),
			"edges":     fmt.Sprintf("%d", edges),
		},
	})
}

// LogInconsistent records the index falling out of step with the catalog
func (l *EventLogger) LogInconsistent(generation uint64, err error) error {
	return l.Log(&Event{
		Level:      LevelWarning,
		Event:      EventInconsistent,
		Generation: generation,
		Error:      err.Error(),
	})
}

// LogRejected records an input record that failed validation
func (l *EventLogger) LogRejected(op, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelWarning,
		Event:   EventRejected,
		Op:      op,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(op, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   EventError,
		Op:      op,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
