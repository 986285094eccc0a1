package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/music-catalog/internal/config"
	"github.com/franz/music-catalog/internal/library"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the configuration and catalog",
	Long: `Run diagnostic checks to ensure mcat can operate correctly.

This command checks:
- Configuration values
- SQLite version
- ffprobe (optional, for track durations when ingesting audio files)
- Database accessibility, schema version and integrity
- Catalog referential integrity and index consistency
- Event log directory permissions
- Disk space next to the database

Use this command to troubleshoot issues before running other mcat commands.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== MCAT Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	cfg, err := loadConfig()
	results = append(results, checkConfig(err))
	if err != nil {
		cfg = config.Default()
	}

	results = append(results, checkSQLite())
	results = append(results, checkFFprobe())
	results = append(results, checkDatabase(cfg.DB))
	if _, statErr := os.Stat(cfg.DB); statErr == nil {
		results = append(results, checkCatalog(cmd.Context(), cfg))
	}
	if cfg.EventsDir != "" {
		results = append(results, checkEventsDirectory(cfg.EventsDir))
	}
	results = append(results, checkDiskSpace(filepath.Dir(cfg.DB), "database"))

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before using the catalog.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed.")
	}

	return nil
}

// checkConfig reports the outcome of loading settings
func checkConfig(err error) checkResult {
	if err != nil {
		return checkResult{
			name:    "Configuration",
			error:   true,
			message: err.Error(),
		}
	}
	return checkResult{name: "Configuration", message: "valid"}
}

// checkFFprobe looks for ffprobe. It is optional: without it, files ingested
// from tags have no duration.
func checkFFprobe() checkResult {
	if !meta.FFprobeAvailable() {
		return checkResult{
			name:    "ffprobe (optional)",
			warning: true,
			message: "not found (durations of tag-ingested files stay empty)",
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffprobe", "-version").CombinedOutput()
	if err != nil {
		return checkResult{
			name:    "ffprobe (optional)",
			warning: true,
			message: fmt.Sprintf("found but not executable: %v", err),
		}
	}

	// "ffprobe version 6.1.1 Copyright ..."
	version := "unknown"
	if fields := strings.Fields(strings.SplitN(string(output), "\n", 2)[0]); len(fields) >= 3 {
		version = fields[2]
	}

	return checkResult{
		name:    "ffprobe (optional)",
		message: fmt.Sprintf("version %s", version),
	}
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is compiled in; there is no external library to find
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility, schema and integrity
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	version, err := db.SchemaVersion()
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot read schema version: %v", err),
		}
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, schema v%d)", dbPath, humanize.Bytes(uint64(info.Size())), version),
	}
}

// checkCatalog loads the catalog, which verifies referential integrity, and
// compares the freshly built indices against a second build
func checkCatalog(ctx context.Context, cfg config.Config) checkResult {
	db, err := store.OpenWithOptions(cfg.DB, &store.OpenOptions{NetworkOptimized: cfg.NetworkOptimized})
	if err != nil {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", cfg.DB, err),
		}
	}

	lib, err := library.Open(ctx, db, cfg, report.NullLogger())
	if err != nil {
		db.Close()
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: err.Error(),
		}
	}
	defer lib.Close()

	if err := lib.Verify(ctx); err != nil {
		return checkResult{
			name:    "Catalog",
			error:   true,
			message: err.Error(),
		}
	}

	st := lib.Stats()
	return checkResult{
		name: "Catalog",
		message: fmt.Sprintf("%s artists, %s albums, %s tracks, %s playlists (indices consistent)",
			humanize.Comma(int64(st.Catalog.Artists)),
			humanize.Comma(int64(st.Catalog.Albums)),
			humanize.Comma(int64(st.Catalog.Tracks)),
			humanize.Comma(int64(st.Playlists))),
	}
}

// checkEventsDirectory verifies the audit log directory is writable
func checkEventsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Events directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Events directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Events directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Events directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".mcat_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Events directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Events directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)

	// The catalog is small; only a nearly full disk is worth a warning
	if availBytes < 100*1024*1024 {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("only %s free of %s", humanize.Bytes(availBytes), humanize.Bytes(totalBytes)),
		}
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		message: fmt.Sprintf("%s free of %s", humanize.Bytes(availBytes), humanize.Bytes(totalBytes)),
	}
}
