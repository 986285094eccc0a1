package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/franz/music-catalog/internal/catalog"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Line %d is not valid JSON: %v", len(events)+1, err)
		}
		events = append(events, e)
	}
	return events
}

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(tmpDir, LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	if logger.Path() == "" {
		t.Error("EventLogger path is empty")
	}
	if _, err := os.Stat(logger.Path()); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.Path())
	}

	filename := filepath.Base(logger.Path())
	if len(filename) < len("events-20060102-150405.jsonl") {
		t.Errorf("Event log filename format incorrect: %s", filename)
	}
}

func TestEventLogger_LogChanges(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	changes := []catalog.Change{
		{Seq: 1, Op: catalog.OpCreated, Kind: catalog.KindArtist, ID: 1},
		{Seq: 2, Op: catalog.OpCreated, Kind: catalog.KindAlbum, ID: 1},
		{Seq: 3, Op: catalog.OpCreated, Kind: catalog.KindTrack, ID: 1},
		{Seq: 4, Op: catalog.OpUpdated, Kind: catalog.KindPlaylist, PlaylistID: "pl-1", Tracks: []int64{1}},
	}
	if err := logger.LogChanges(changes, 7); err != nil {
		t.Fatalf("LogChanges failed: %v", err)
	}
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != len(changes) {
		t.Fatalf("Expected %d events, got %d", len(changes), len(events))
	}
	for i, e := range events {
		if e.Event != EventChange {
			t.Errorf("event %d: expected %s, got %s", i, EventChange, e.Event)
		}
		if e.Seq != changes[i].Seq {
			t.Errorf("event %d: expected seq %d, got %d", i, changes[i].Seq, e.Seq)
		}
		if e.Generation != 7 {
			t.Errorf("event %d: expected generation 7, got %d", i, e.Generation)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d: timestamp not set", i)
		}
	}
	if events[0].Kind != "artist" || events[0].Op != "created" || events[0].EntityID != 1 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[3].PlaylistID != "pl-1" || len(events[3].Tracks) != 1 {
		t.Errorf("playlist change lost its payload: %+v", events[3])
	}
}

func TestEventLogger_LogReindex(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	if err := logger.LogReindex(12, 3, 4, 1500*time.Millisecond, nil); err != nil {
		t.Fatalf("LogReindex failed: %v", err)
	}
	if err := logger.LogReindex(0, 0, 5, 0, errors.New("stale snapshot")); err != nil {
		t.Fatalf("LogReindex failed: %v", err)
	}
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Level != LevelInfo || events[0].Duration != 1500 || events[0].Extra["documents"] != "12" {
		t.Errorf("unexpected reindex event: %+v", events[0])
	}
	if events[1].Level != LevelError || events[1].Error != "stale snapshot" {
		t.Errorf("expected failed reindex at error level, got %+v", events[1])
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	const writers, perWriter = 10, 20
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c := catalog.Change{Seq: uint64(w*perWriter + i + 1), Kind: catalog.KindTrack, ID: int64(i)}
				if err := logger.LogChange(c, 1); err != nil {
					t.Errorf("LogChange failed: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()
	logger.Close()

	if got := len(readEvents(t, logger.Path())); got != writers*perWriter {
		t.Errorf("Expected %d events, got %d", writers*perWriter, got)
	}
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	// None of these may panic
	if err := logger.LogChange(catalog.Change{}, 1); err != nil {
		t.Errorf("NullLogger.LogChange returned error: %v", err)
	}
	if err := logger.LogRejected("ingest", "/x.flac", errors.New("bad")); err != nil {
		t.Errorf("NullLogger.LogRejected returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close returned error: %v", err)
	}
	if logger.Path() != "" {
		t.Errorf("NullLogger.Path should be empty, got %q", logger.Path())
	}
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	all := []Event{
		{Level: LevelDebug, Event: EventChange},
		{Level: LevelInfo, Event: EventReindex},
		{Level: LevelWarning, Event: EventInconsistent},
		{Level: LevelError, Event: EventError},
	}

	testCases := []struct {
		name          string
		minLevel      EventLevel
		expectedCount int
	}{
		{"LevelDebug logs all", LevelDebug, 4},
		{"LevelInfo skips debug", LevelInfo, 3},
		{"LevelWarning skips debug and info", LevelWarning, 2},
		{"LevelError only logs errors", LevelError, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewEventLogger(t.TempDir(), tc.minLevel)
			if err != nil {
				t.Fatalf("NewEventLogger failed: %v", err)
			}

			for _, e := range all {
				e := e
				if err := logger.Log(&e); err != nil {
					t.Fatalf("Log failed: %v", err)
				}
			}
			logger.Close()

			if got := len(readEvents(t, logger.Path())); got != tc.expectedCount {
				t.Errorf("Expected %d events logged, got %d", tc.expectedCount, got)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want EventLevel
	}{
		{"debug", LevelDebug},
		{"warning", LevelWarning},
		{"error", LevelError},
		{"", LevelInfo},
		{"loud", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
