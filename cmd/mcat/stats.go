package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog and index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "print statistics as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	st := s.lib.Stats()
	if asJSON {
		return printJSON(st)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database:   %s", s.cfg.DB)
	if info, err := os.Stat(s.cfg.DB); err == nil {
		fmt.Fprintf(out, " (%s)", humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Artists:    %s\n", humanize.Comma(int64(st.Catalog.Artists)))
	fmt.Fprintf(out, "Albums:     %s\n", humanize.Comma(int64(st.Catalog.Albums)))
	fmt.Fprintf(out, "Tracks:     %s\n", humanize.Comma(int64(st.Catalog.Tracks)))
	fmt.Fprintf(out, "Analyzed:   %s\n", humanize.Comma(int64(st.Catalog.Analyzed)))
	fmt.Fprintf(out, "Playlists:  %s\n", humanize.Comma(int64(st.Playlists)))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Search documents:  %s (%s terms)\n", humanize.Comma(int64(st.Index.Documents)), humanize.Comma(int64(st.Index.Terms)))
	fmt.Fprintf(out, "Cached edges:      %s\n", humanize.Comma(int64(st.Index.Edges)))
	fmt.Fprintf(out, "Consistent:        %t\n", st.Index.Consistent)
	return nil
}
