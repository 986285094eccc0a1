package main

import (
	"fmt"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [track-id...]",
	Short: "Remove tracks from the catalog",
	Long: `Remove tracks by id, or by the file they were ingested from (--file).

Playlist entries referring to a removed track stay in place as tombstones.
What happens to an album left without tracks depends on on_empty_album:
"delete" removes it together with artists left without credits, "retain"
keeps it as an empty placeholder.`,
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().StringSlice("file", nil, "remove the track ingested from this file (repeatable)")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	files, _ := cmd.Flags().GetStringSlice("file")

	if len(args) == 0 && len(files) == 0 {
		return fmt.Errorf("nothing to remove (pass track ids or --file)")
	}

	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, id := range ids {
		changes, err := s.lib.RemoveTrack(ctx, id)
		if err != nil {
			return err
		}
		reportRemoval(id, changes)
	}
	for _, f := range files {
		id, changes, err := s.lib.RemoveFile(ctx, f)
		if err != nil {
			return err
		}
		reportRemoval(id, changes)
	}
	return nil
}

func reportRemoval(trackID int64, changes []catalog.Change) {
	util.SuccessLog("Removed track %d", trackID)
	for _, c := range changes {
		if c.Kind == catalog.KindTrack && c.ID == trackID {
			continue
		}
		switch c.Kind {
		case catalog.KindPlaylist:
			util.InfoLog("  Playlist %s: entry tombstoned", c.PlaylistID)
		case catalog.KindAnalysis:
			util.DebugLog("  Analysis %s", c.Op)
		default:
			util.InfoLog("  %s %d %s", c.Kind, c.ID, c.Op)
		}
	}
}
