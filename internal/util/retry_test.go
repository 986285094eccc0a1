package util

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func init() {
	SetOutput(io.Discard)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "stale snapshot",
			err:      ErrStaleSnapshot,
			expected: true,
		},
		{
			name:     "wrapped stale snapshot",
			err:      fmt.Errorf("recommend track 4: %w", ErrStaleSnapshot),
			expected: true,
		},
		{
			name:     "sqlite busy",
			err:      errors.New("database is locked (5) (SQLITE_BUSY)"),
			expected: true,
		},
		{
			name:     "unknown track (not retryable)",
			err:      ErrUnknownTrack,
			expected: false,
		},
		{
			name:     "generic error (not retryable)",
			err:      errors.New("invalid argument"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableError(tt.err); got != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, expected %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRetryWithBackoff_SucceedsAfterRetry(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
	}

	attempts := 0
	result, err := RetryWithBackoff(cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, ErrStaleSnapshot
		}
		return 42, nil
	}, "test")

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != 42 {
		t.Errorf("expected 42, got %d", result)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_NonRetryableFailsFast(t *testing.T) {
	attempts := 0
	_, err := RetryWithBackoff(DefaultRetryConfig(), func() (int, error) {
		attempts++
		return 0, ErrUnknownTrack
	}, "test")

	if !errors.Is(err, ErrUnknownTrack) {
		t.Fatalf("expected ErrUnknownTrack, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestSnapshotRetryConfig_RetriesOnce(t *testing.T) {
	attempts := 0
	err := Retry(SnapshotRetryConfig(), func() error {
		attempts++
		return ErrStaleSnapshot
	}, "snapshot")

	if !errors.Is(err, ErrStaleSnapshot) {
		t.Fatalf("expected ErrStaleSnapshot after exhausting retries, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts (one retry), got %d", attempts)
	}
}
