package main

import (
	"fmt"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/meta"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge-artists [keep-id merge-id]",
	Short: "Unify two artists, or suggest candidates with --suggest",
	Long: `Fold one artist into another.

Ingest only unifies artists whose normalized names are identical. Spelling
variants ("Beatles" vs "The Beetles") stay separate until merged here:
credits move to the kept artist, albums that now collide are combined, and
the merged name becomes an alias so future ingests resolve to the kept one.

--suggest lists likely duplicates by Jaro-Winkler similarity without
changing anything.`,
	Args: func(cmd *cobra.Command, args []string) error {
		suggest, _ := cmd.Flags().GetBool("suggest")
		if suggest {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().Bool("suggest", false, "list likely duplicate artists instead of merging")
	mergeCmd.Flags().Float64("min-confidence", 0.9, "minimum similarity for --suggest (0-1)")
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	suggest, _ := cmd.Flags().GetBool("suggest")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if suggest {
		suggestions := s.lib.SuggestArtistMerges(meta.JaroWinklerMatcher{}, minConfidence)
		out := cmd.OutOrStdout()
		if len(suggestions) == 0 {
			fmt.Fprintln(out, "No likely duplicates.")
			return nil
		}
		s.lib.Read(func(v catalog.View) error {
			for _, m := range suggestions {
				fmt.Fprintf(out, "%.3f  keep %d %q  <- merge %d %q\n",
					m.Confidence,
					m.Keep, describeRef(v, catalog.EntityRef{Kind: catalog.KindArtist, ID: m.Keep}),
					m.Merge, describeRef(v, catalog.EntityRef{Kind: catalog.KindArtist, ID: m.Merge}))
			}
			return nil
		})
		return nil
	}

	keep, err := parseID(args[0])
	if err != nil {
		return err
	}
	merge, err := parseID(args[1])
	if err != nil {
		return err
	}

	changes, err := s.lib.MergeArtists(ctx, keep, merge)
	if err != nil {
		return err
	}
	util.SuccessLog("Merged artist %d into %d (%d changes)", merge, keep, len(changes))
	return nil
}
