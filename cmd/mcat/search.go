package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Full-text search over artists, albums and tracks",
	Long: `Rank catalog entities against the query terms.

Every term must match. Title matches weigh 3, album 2, artist 1; ties are
broken by kind (artist, album, track) and id, so results are deterministic.
A term ending in * matches any indexed term with that prefix.

Examples:
  mcat search beat first
  mcat search "deb*" --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int("limit", 20, "maximum results (0 = unlimited)")
	searchCmd.Flags().Int("offset", 0, "skip this many results")
	searchCmd.Flags().Bool("json", false, "print results as JSON")
}

// searchResult is a hit with its display label
type searchResult struct {
	Kind  string `json:"kind"`
	ID    int64  `json:"id"`
	Score int    `json:"score"`
	Label string `json:"label"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q := search.ParseQuery(strings.Join(args, " "), limit, offset)
	hits, err := withAutoReindex(ctx, s.lib, func() ([]search.Hit, error) {
		return s.lib.Search(q)
	})
	if err != nil {
		return err
	}

	results := make([]searchResult, len(hits))
	s.lib.Read(func(v catalog.View) error {
		for i, h := range hits {
			results[i] = searchResult{
				Kind:  h.Ref.Kind.String(),
				ID:    h.Ref.ID,
				Score: h.Score,
				Label: describeRef(v, h.Ref),
			}
		}
		return nil
	})

	if asJSON {
		return printJSON(results)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}
	labelWidth := 0
	if out == os.Stdout && util.IsTerminal(os.Stdout.Fd()) {
		labelWidth = util.GetTerminalWidth() - 20
	}
	for _, r := range results {
		fmt.Fprintf(out, "%-6s %6d  %3d  %s\n", r.Kind, r.ID, r.Score, truncate(r.Label, labelWidth))
	}
	return nil
}

// truncate shortens s to width runes; width <= 0 leaves it alone
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
