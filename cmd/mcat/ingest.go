package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/util"
	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [audio files...]",
	Short: "Add scanned files to the catalog",
	Long: `Normalize scanned-file records and link them into the catalog.

Records are read either from a JSONL file (--records, "-" for stdin), one
object per line:

  {"title":"First","artist":"The Beat","album":"Debut","year":2001,
   "track_no":1,"disc_no":1,"duration_ms":200000,"file_path":"/m/a.flac"}

or from the embedded tags of the audio files given as arguments.

Ingesting a file that is already in the catalog updates its track in place.
Malformed records are rejected and reported; they never stop the run.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("records", "", "JSONL file of raw file records (\"-\" for stdin)")
	ingestCmd.Flags().Int("workers", runtime.NumCPU(), "parallel tag readers for audio file arguments")
	ingestCmd.Flags().Bool("probe", true, "read durations with ffprobe when it is installed")
}

// ingestSummary counts the outcome of one ingest run
type ingestSummary struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Rejected int `json:"rejected"`
}

// pendingRecord is a record to ingest, or the reason it could not be read
type pendingRecord struct {
	source string
	rec    meta.RawFileRecord
	err    error
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	recordsPath, _ := cmd.Flags().GetString("records")
	workers, _ := cmd.Flags().GetInt("workers")
	probe, _ := cmd.Flags().GetBool("probe")

	if recordsPath == "" && len(args) == 0 {
		return fmt.Errorf("nothing to ingest (use --records or pass audio files)")
	}

	var pending []pendingRecord
	if recordsPath != "" {
		recs, err := loadFileRecords(recordsPath)
		if err != nil {
			return err
		}
		pending = append(pending, recs...)
	}
	if len(args) > 0 {
		if probe && !meta.FFprobeAvailable() {
			util.WarnLog("ffprobe not found in PATH - durations will be left empty")
			util.WarnLog("Install ffmpeg for durations: https://ffmpeg.org/")
			probe = false
		}
		pending = append(pending, readTagRecords(ctx, args, workers, probe)...)
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	summary, err := ingestRecords(ctx, s, pending)
	if err != nil {
		return err
	}

	util.SuccessLog("Ingest complete in %v", time.Since(start).Round(time.Millisecond))
	util.InfoLog("  Created: %d", summary.Created)
	util.InfoLog("  Updated: %d", summary.Updated)
	if summary.Rejected > 0 {
		util.WarnLog("  Rejected: %d", summary.Rejected)
	}
	return nil
}

// ingestRecords feeds records into the library one at a time. Unreadable and
// malformed records are counted and skipped; any other failure stops the run.
func ingestRecords(ctx context.Context, s *session, pending []pendingRecord) (ingestSummary, error) {
	var summary ingestSummary

	bar := newProgressBar(len(pending), "Ingesting", "records")
	defer func() {
		if bar != nil {
			bar.Finish()
		}
	}()

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if bar != nil {
			bar.Add(1)
		}

		if p.err != nil {
			summary.Rejected++
			util.WarnLog("Skipping %s: %v", p.source, p.err)
			s.events.LogRejected("ingest", p.source, p.err)
			continue
		}

		res, err := s.lib.Ingest(ctx, p.rec)
		switch {
		case errors.Is(err, util.ErrMalformedRecord):
			summary.Rejected++
			util.WarnLog("Rejected %s: %v", p.source, err)
			continue
		case err != nil:
			return summary, fmt.Errorf("failed to ingest %s: %w", p.source, err)
		}

		if res.Op == catalog.OpCreated {
			summary.Created++
		} else {
			summary.Updated++
		}
		util.DebugLog("%s %s -> track %d", res.Op, p.source, res.TrackID)
	}
	return summary, nil
}

func loadFileRecords(path string) ([]pendingRecord, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	lines, err := readJSONL[meta.RawFileRecord](in)
	if err != nil {
		return nil, err
	}

	out := make([]pendingRecord, len(lines))
	for i, l := range lines {
		source := l.Value.FilePath
		if source == "" || l.Err != nil {
			source = fmt.Sprintf("%s:%d", path, l.Line)
		}
		out[i] = pendingRecord{source: source, rec: l.Value, err: l.Err}
	}
	return out, nil
}

// readTagRecords reads the tags (and with probe, the duration) of every file
// in parallel, keeping input order
func readTagRecords(ctx context.Context, paths []string, workers int, probe bool) []pendingRecord {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	mapper := iter.Mapper[string, pendingRecord]{MaxGoroutines: workers}
	return mapper.Map(paths, func(path *string) pendingRecord {
		abs, err := filepath.Abs(*path)
		if err != nil {
			return pendingRecord{source: *path, err: err}
		}
		rec, err := meta.ReadTags(abs)
		if err != nil {
			return pendingRecord{source: abs, err: err}
		}
		if probe {
			if ms, err := meta.ProbeDuration(ctx, abs); err == nil {
				rec.DurationMs = ms
			} else {
				util.DebugLog("No duration for %s: %v", abs, err)
			}
		}
		return pendingRecord{source: abs, rec: rec}
	})
}
