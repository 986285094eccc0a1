package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/music-catalog/internal/catalog"
)

// SummaryReport is a point-in-time overview of the catalog
type SummaryReport struct {
	GeneratedAt time.Time

	Catalog    catalog.Stats
	Playlists  int
	Generation uint64

	Index IndexSummary

	// Details
	TopArtists       []ArtistSummary
	EmptyAlbums      []AlbumSummary
	MergeSuggestions []MergeSummary

	// Metadata
	DatabasePath  string
	DatabaseBytes int64
	EventLogPath  string
}

// IndexSummary mirrors the derived index statistics
type IndexSummary struct {
	Documents  int
	Terms      int
	Edges      int
	AppliedSeq uint64
	IndexedSeq uint64
	Consistent bool
}

// ArtistSummary is an artist with its credit counts
type ArtistSummary struct {
	Name   string
	Albums int
	Tracks int
}

// AlbumSummary names an album
type AlbumSummary struct {
	ID     int64
	Title  string
	Artist string
}

// MergeSummary is a suggested artist unification, by name
type MergeSummary struct {
	Keep       string
	Merge      string
	Confidence float64
}

// GenerateSummaryReport gathers the catalog part of a summary from a view.
// Index, playlist and path fields are left for the caller.
func GenerateSummaryReport(v catalog.View, topN int) *SummaryReport {
	report := &SummaryReport{
		GeneratedAt: time.Now(),
		TopArtists:  make([]ArtistSummary, 0),
		EmptyAlbums: make([]AlbumSummary, 0),
	}

	artists := v.Artists()
	albums := v.Albums()
	tracks := v.Tracks()

	report.Catalog.Artists = len(artists)
	report.Catalog.Albums = len(albums)
	report.Catalog.Tracks = len(tracks)
	for _, t := range tracks {
		if _, ok := v.Vector(t.ID); ok {
			report.Catalog.Analyzed++
		}
	}

	report.TopArtists = gatherTopArtists(v, artists, topN)

	// Albums retained after their last track was removed
	for _, a := range albums {
		if len(v.AlbumTracks(a.ID)) > 0 {
			continue
		}
		report.EmptyAlbums = append(report.EmptyAlbums, AlbumSummary{
			ID:     a.ID,
			Title:  a.Title,
			Artist: artistName(v, a.PrimaryArtistID()),
		})
	}

	return report
}

// AddMergeSuggestions resolves suggestion ids to names
func (r *SummaryReport) AddMergeSuggestions(v catalog.View, suggestions []catalog.MergeSuggestion) {
	for _, s := range suggestions {
		r.MergeSuggestions = append(r.MergeSuggestions, MergeSummary{
			Keep:       artistName(v, s.Keep),
			Merge:      artistName(v, s.Merge),
			Confidence: s.Confidence,
		})
	}
}

// gatherTopArtists ranks artists by credited tracks
func gatherTopArtists(v catalog.View, artists []*catalog.Artist, limit int) []ArtistSummary {
	out := make([]ArtistSummary, 0, len(artists))
	for _, a := range artists {
		out = append(out, ArtistSummary{
			Name:   a.Name,
			Albums: len(v.ArtistAlbums(a.ID)),
			Tracks: len(v.ArtistTracks(a.ID)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Tracks != out[j].Tracks {
			return out[i].Tracks > out[j].Tracks
		}
		return out[i].Name < out[j].Name
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func artistName(v catalog.View, id int64) string {
	if a, ok := v.Artist(id); ok {
		return a.Name
	}
	return fmt.Sprintf("artist %d", id)
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Music Catalog - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`", report.DatabasePath))
		if report.DatabaseBytes > 0 {
			md.WriteString(fmt.Sprintf(" (%s)", humanize.Bytes(uint64(report.DatabaseBytes))))
		}
		md.WriteString("\n\n")
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## 📊 Catalog\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Artists | %s |\n", humanize.Comma(int64(report.Catalog.Artists))))
	md.WriteString(fmt.Sprintf("| Albums | %s |\n", humanize.Comma(int64(report.Catalog.Albums))))
	md.WriteString(fmt.Sprintf("| Tracks | %s |\n", humanize.Comma(int64(report.Catalog.Tracks))))
	md.WriteString(fmt.Sprintf("| Analyzed Tracks | %s |\n", humanize.Comma(int64(report.Catalog.Analyzed))))
	md.WriteString(fmt.Sprintf("| Playlists | %s |\n", humanize.Comma(int64(report.Playlists))))
	md.WriteString("\n")

	// Index
	md.WriteString("## 🔎 Indexes\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Search Documents | %s |\n", humanize.Comma(int64(report.Index.Documents))))
	md.WriteString(fmt.Sprintf("| Search Terms | %s |\n", humanize.Comma(int64(report.Index.Terms))))
	md.WriteString(fmt.Sprintf("| Cached Similarity Edges | %s |\n", humanize.Comma(int64(report.Index.Edges))))
	md.WriteString(fmt.Sprintf("| Changes Applied / Indexed | %d / %d |\n", report.Index.AppliedSeq, report.Index.IndexedSeq))
	if report.Index.Consistent {
		md.WriteString("| State | consistent |\n")
	} else {
		md.WriteString("| State | ⚠️ inconsistent, run `mcat reindex` |\n")
	}
	md.WriteString("\n")

	if len(report.TopArtists) > 0 {
		md.WriteString(fmt.Sprintf("## 🎤 Top Artists (Top %d)\n\n", len(report.TopArtists)))
		md.WriteString("| Artist | Albums | Tracks |\n")
		md.WriteString("|--------|--------|--------|\n")
		for _, a := range report.TopArtists {
			md.WriteString(fmt.Sprintf("| %s | %d | %d |\n", escapeCell(a.Name), a.Albums, a.Tracks))
		}
		md.WriteString("\n")
	}

	if len(report.EmptyAlbums) > 0 {
		md.WriteString("## 📦 Retained Empty Albums\n\n")
		for _, a := range report.EmptyAlbums {
			md.WriteString(fmt.Sprintf("- %s - %s (id %d)\n", a.Artist, a.Title, a.ID))
		}
		md.WriteString("\n")
	}

	if len(report.MergeSuggestions) > 0 {
		md.WriteString("## 🔗 Possible Artist Duplicates\n\n")
		md.WriteString("| Keep | Merge | Confidence |\n")
		md.WriteString("|------|-------|------------|\n")
		for _, s := range report.MergeSuggestions {
			md.WriteString(fmt.Sprintf("| %s | %s | %.2f |\n", escapeCell(s.Keep), escapeCell(s.Merge), s.Confidence))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by mcat - Music Catalog*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// escapeCell keeps a name from breaking a Markdown table row
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
