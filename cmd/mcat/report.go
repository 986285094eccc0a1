package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a Markdown summary of the catalog",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Catalog and index statistics
- Artists with the most credited tracks
- Albums retained without tracks
- Likely duplicate artists (Jaro-Winkler similarity)

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().Int("top", 10, "number of artists to list")
	reportCmd.Flags().Float64("min-confidence", 0.9, "minimum similarity for duplicate artist suggestions")
}

func runReport(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	topN, _ := cmd.Flags().GetInt("top")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Database: %s", s.cfg.DB)

	suggestions := s.lib.SuggestArtistMerges(meta.JaroWinklerMatcher{}, minConfidence)

	var r *report.SummaryReport
	s.lib.Read(func(v catalog.View) error {
		r = report.GenerateSummaryReport(v, topN)
		r.AddMergeSuggestions(v, suggestions)
		return nil
	})

	st := s.lib.Stats()
	r.Playlists = st.Playlists
	r.Generation = st.Generation
	r.Index = report.IndexSummary{
		Documents:  st.Index.Documents,
		Terms:      st.Index.Terms,
		Edges:      st.Index.Edges,
		AppliedSeq: st.Index.AppliedSeq,
		IndexedSeq: st.Index.IndexedSeq,
		Consistent: st.Index.Consistent,
	}
	r.DatabasePath = s.cfg.DB
	if info, err := os.Stat(s.cfg.DB); err == nil {
		r.DatabaseBytes = info.Size()
	}
	r.EventLogPath = s.events.Path()

	if outDir == "" {
		outDir = filepath.Join("artifacts", "reports", time.Now().Format("20060102-150405"))
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	reportPath := filepath.Join(outDir, "summary.md")
	if err := report.WriteMarkdownReport(r, reportPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report written to %s", reportPath)
	return nil
}
