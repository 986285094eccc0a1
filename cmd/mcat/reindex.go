package main

import (
	"errors"
	"time"

	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search and recommendation indices",
	Long: `Rebuild the search index and recommendation cache from the catalog.

Indices are kept up to date on every change and rebuilt whenever the catalog
is opened, so this is only needed after an inconsistency was reported.
Use --verify to only compare the live indices against a fresh build.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().Bool("verify", false, "check consistency without rebuilding")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	verifyOnly, _ := cmd.Flags().GetBool("verify")

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if verifyOnly {
		if err := s.lib.Verify(ctx); err != nil {
			if errors.Is(err, util.ErrInconsistent) {
				util.ErrorLog("Indices are inconsistent: %v", err)
				util.InfoLog("Run 'mcat reindex' to rebuild them")
			}
			return err
		}
		util.SuccessLog("Indices are consistent with the catalog")
		return nil
	}

	res, err := s.lib.Reindex(ctx)
	if err != nil {
		return err
	}
	util.SuccessLog("Reindex complete in %v", res.Duration.Round(time.Millisecond))
	util.InfoLog("  Documents: %d", res.Documents)
	util.InfoLog("  Terms: %d", res.Terms)
	util.InfoLog("  Generation: %d", res.Generation)
	return nil
}
