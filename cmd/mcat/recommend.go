package main

import (
	"fmt"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/recommend"
	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <track-id>",
	Short: "List tracks similar to a track",
	Long: `Rank other tracks by similarity to the given track.

Similarity blends the cosine similarity of the acoustic feature vectors with
how often the two tracks share a playlist; recommendation_weight_acoustic
sets the balance. Tracks with neither signal are never suggested.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().IntP("count", "k", 10, "number of recommendations")
	recommendCmd.Flags().Bool("json", false, "print results as JSON")
}

type recommendResult struct {
	TrackID int64   `json:"track_id"`
	Score   float64 `json:"score"`
	Label   string  `json:"label"`
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	k, _ := cmd.Flags().GetInt("count")
	asJSON, _ := cmd.Flags().GetBool("json")

	trackID, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := withAutoReindex(ctx, s.lib, func() ([]recommend.Recommendation, error) {
		return s.lib.Recommend(ctx, trackID, k)
	})
	if err != nil {
		return err
	}

	var seed string
	results := make([]recommendResult, len(recs))
	s.lib.Read(func(v catalog.View) error {
		seed = describeTrack(v, trackID)
		for i, r := range recs {
			results[i] = recommendResult{TrackID: r.TrackID, Score: r.Score, Label: describeTrack(v, r.TrackID)}
		}
		return nil
	})

	if asJSON {
		return printJSON(results)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Similar to %s:\n", seed)
	if len(results) == 0 {
		fmt.Fprintln(out, "  (nothing yet: attach analyses or add the track to playlists)")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "  %6d  %.3f  %s\n", r.TrackID, r.Score, r.Label)
	}
	return nil
}
