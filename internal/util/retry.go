package util

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (first try included)
	InitialWait time.Duration // Initial wait duration (will be doubled each retry)
	MaxWait     time.Duration // Maximum wait duration between retries

	// Retryable decides whether an error is worth another attempt.
	// Defaults to IsRetryableError when nil.
	Retryable func(error) bool
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

// SnapshotRetryConfig retries a snapshot computation exactly once,
// immediately, when it lost the race against a writer.
func SnapshotRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 2,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrStaleSnapshot)
		},
	}
}

// IsRetryableError checks if an error is worth retrying
// Returns true for stale snapshots and transient SQLite contention
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrStaleSnapshot) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"database is locked",
		"database table is locked",
		"sqlite_busy",
		"resource temporarily unavailable",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// RetryWithBackoff executes a function with exponential backoff retry logic
// Returns the result of the function or the final error after all retries exhausted
func RetryWithBackoff[T any](cfg *RetryConfig, operation func() (T, error), operationName string) (T, error) {
	var result T
	var err error

	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryableError
	}

	waitDuration := cfg.InitialWait

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = operation()

		if err == nil {
			if attempt > 1 {
				DebugLog("Retry: %s succeeded on attempt %d/%d",
					operationName, attempt, cfg.MaxAttempts)
			}
			return result, nil
		}

		if !retryable(err) {
			return result, err
		}

		// Last attempt - return the error
		if attempt == cfg.MaxAttempts {
			WarnLog("Retry: %s failed after %d attempts: %v",
				operationName, cfg.MaxAttempts, err)
			return result, fmt.Errorf("max retries exceeded (%d attempts): %w",
				cfg.MaxAttempts, err)
		}

		DebugLog("Retry: %s failed (attempt %d/%d), retrying in %v: %v",
			operationName, attempt, cfg.MaxAttempts, waitDuration, err)

		if waitDuration > 0 {
			time.Sleep(waitDuration)
		}

		waitDuration *= 2
		if cfg.MaxWait > 0 && waitDuration > cfg.MaxWait {
			waitDuration = cfg.MaxWait
		}
	}

	// Should never reach here, but return error just in case
	return result, fmt.Errorf("unexpected retry loop exit: %w", err)
}

// Retry executes a function with retry logic (no return value)
// Convenience wrapper for operations that don't return a value
func Retry(cfg *RetryConfig, operation func() error, operationName string) error {
	_, err := RetryWithBackoff(cfg, func() (struct{}, error) {
		return struct{}{}, operation()
	}, operationName)
	return err
}
