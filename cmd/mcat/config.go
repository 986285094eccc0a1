package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/franz/music-catalog/internal/config"
	"github.com/franz/music-catalog/internal/library"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/viper"
)

// session is one opened catalog: settings, database, audit log and library
type session struct {
	cfg    config.Config
	store  *store.Store
	events *report.EventLogger
	lib    *library.Library
}

// loadConfig resolves settings with the usual precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (MCAT_*)
// 3. Config file
// 4. Built-in default
func loadConfig() (config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return config.Config{}, err
	}
	switch {
	case cfg.Quiet:
		util.SetLogLevel(util.LevelError)
	case cfg.Verbose:
		util.SetLogLevel(util.LevelDebug)
	default:
		util.SetLogLevel(util.LevelInfo)
	}
	return cfg, nil
}

// openSession opens the database and loads the catalog into memory
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	util.DebugLog("Opening database: %s", cfg.DB)
	// Another mcat process may hold the write lock while migrating
	db, err := util.RetryWithBackoff(util.DefaultRetryConfig(), func() (*store.Store, error) {
		return store.OpenWithOptions(cfg.DB, &store.OpenOptions{NetworkOptimized: cfg.NetworkOptimized})
	}, "open database")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	events := report.NullLogger()
	if cfg.EventsDir != "" {
		events, err = report.NewEventLogger(cfg.EventsDir, report.ParseLevel(cfg.EventLevel))
		if err != nil {
			util.WarnLog("Failed to create event logger: %v", err)
			events = report.NullLogger()
		} else {
			util.DebugLog("Event log: %s", events.Path())
		}
	}

	lib, err := library.Open(ctx, db, cfg, events)
	if err != nil {
		db.Close()
		events.Close()
		return nil, err
	}

	return &session{cfg: cfg, store: db, events: events, lib: lib}, nil
}

// Close releases the library (and with it the database), then the audit log
func (s *session) Close() error {
	err := s.lib.Close()
	if cerr := s.events.Close(); err == nil {
		err = cerr
	}
	return err
}

// withAutoReindex runs a query and, when the indices are reported
// inconsistent, rebuilds them once and runs it again.
// Disabled with --no-auto-reindex.
func withAutoReindex[T any](ctx context.Context, lib *library.Library, query func() (T, error)) (T, error) {
	v, err := query()
	if err == nil || !errors.Is(err, util.ErrInconsistent) || !util.GetAutoReindex() {
		return v, err
	}

	util.WarnLog("Indices are inconsistent with the catalog, rebuilding: %v", err)
	res, rerr := lib.Reindex(ctx)
	if rerr != nil {
		return v, fmt.Errorf("automatic reindex failed: %w", rerr)
	}
	util.InfoLog("Reindexed %d documents", res.Documents)
	return query()
}

// printJSON writes v to stdout as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
