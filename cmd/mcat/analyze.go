package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/franz/music-catalog/internal/analysis"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [track-id]",
	Short: "Attach acoustic analysis to tracks",
	Long: `Attach externally computed acoustic features to tracks.

Either read a JSONL file (--records, "-" for stdin) with one object per line,
matched to tracks by file path:

  {"file_path":"/m/a.flac","feature_vector":[0.1,0.8,0.3],"tempo":120,"loudness":-8}

or attach one vector to a track id with --features, --tempo and --loudness.

A new vector replaces the old one and invalidates the track's cached
recommendations.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("records", "", "JSONL file of analysis records (\"-\" for stdin)")
	analyzeCmd.Flags().String("features", "", "comma-separated feature vector (with a track id)")
	analyzeCmd.Flags().Float64("tempo", 0, "tempo in BPM (with a track id)")
	analyzeCmd.Flags().Float64("loudness", 0, "loudness in dB (with a track id)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	recordsPath, _ := cmd.Flags().GetString("records")

	if (recordsPath == "") == (len(args) == 0) {
		return fmt.Errorf("pass either --records or a track id")
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		trackID, err := parseID(args[0])
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("features")
		features, err := parseFeatures(raw)
		if err != nil {
			return err
		}
		tempo, _ := cmd.Flags().GetFloat64("tempo")
		loudness, _ := cmd.Flags().GetFloat64("loudness")

		if _, err := s.lib.AttachAnalysis(ctx, trackID, analysis.NewVector(features, tempo, loudness)); err != nil {
			return err
		}
		util.SuccessLog("Analysis attached to track %d", trackID)
		return nil
	}

	in, err := openInput(recordsPath)
	if err != nil {
		return err
	}
	defer in.Close()

	lines, err := readJSONL[meta.RawAnalysisRecord](in)
	if err != nil {
		return err
	}

	bar := newProgressBar(len(lines), "Analyzing", "records")
	attached, rejected := 0, 0
	for _, l := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		if bar != nil {
			bar.Add(1)
		}
		if l.Err != nil {
			rejected++
			util.WarnLog("Skipping %s: %v", recordsPath, l.Err)
			continue
		}

		_, _, err := s.lib.AttachAnalysisRecord(ctx, l.Value)
		switch {
		case errors.Is(err, util.ErrMalformedRecord), errors.Is(err, util.ErrUnknownTrack):
			rejected++
			util.WarnLog("Rejected %s: %v", l.Value.FilePath, err)
		case err != nil:
			return fmt.Errorf("failed to attach analysis for %s: %w", l.Value.FilePath, err)
		default:
			attached++
		}
	}
	if bar != nil {
		bar.Finish()
	}

	util.SuccessLog("Attached %d analyses", attached)
	if rejected > 0 {
		util.WarnLog("  Rejected: %d", rejected)
	}
	return nil
}

func parseFeatures(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("--features is required with a track id")
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid feature %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
