package main

import (
	"fmt"
	"strconv"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/playlist"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:     "playlist",
	Aliases: []string{"pl"},
	Short:   "Create and edit playlists",
	Long: `Manage ordered playlists of tracks.

Positions are 0-based and always dense. Entries whose track was removed from
the catalog stay in place as tombstones until removed explicitly.`,
}

var playlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			p, err := s.lib.CreatePlaylist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			util.SuccessLog("Created playlist %q", p.Name)
			return nil
		})
	},
}

var playlistRenameCmd = &cobra.Command{
	Use:   "rename <playlist-id> <name>",
	Short: "Rename a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			p, err := s.lib.RenamePlaylist(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			util.SuccessLog("Renamed playlist %s to %q", p.ID, p.Name)
			return nil
		})
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete <playlist-id>",
	Short: "Delete a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			if err := s.lib.DeletePlaylist(cmd.Context(), args[0]); err != nil {
				return err
			}
			util.SuccessLog("Deleted playlist %s", args[0])
			return nil
		})
	},
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <playlist-id> <track-id>",
	Short: "Add a track to a playlist (appends unless --at is given)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		trackID, err := parseID(args[1])
		if err != nil {
			return err
		}
		at, _ := cmd.Flags().GetInt("at")

		return withSession(cmd, func(s *session) error {
			var p *playlist.Playlist
			if at < 0 {
				p, err = s.lib.AppendToPlaylist(cmd.Context(), args[0], trackID)
			} else {
				p, err = s.lib.InsertIntoPlaylist(cmd.Context(), args[0], at, trackID)
			}
			if err != nil {
				return err
			}
			util.SuccessLog("Playlist %q now has %d entries", p.Name, p.Len())
			return nil
		})
	},
}

var playlistMoveCmd = &cobra.Command{
	Use:   "move <playlist-id> <from> <to>",
	Short: "Move the entry at one position to another",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		to, err := parsePosition(args[2])
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *session) error {
			if _, err := s.lib.MovePlaylistEntry(cmd.Context(), args[0], from, to); err != nil {
				return err
			}
			util.SuccessLog("Moved entry %d to %d", from, to)
			return nil
		})
	},
}

var playlistRemoveCmd = &cobra.Command{
	Use:   "rm <playlist-id> <position>",
	Short: "Remove the entry at a position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[1])
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *session) error {
			p, err := s.lib.RemovePlaylistEntry(cmd.Context(), args[0], pos)
			if err != nil {
				return err
			}
			util.SuccessLog("Playlist %q now has %d entries", p.Name, p.Len())
			return nil
		})
	},
}

var playlistShowCmd = &cobra.Command{
	Use:   "show <playlist-id>",
	Short: "List a playlist's entries in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		return withSession(cmd, func(s *session) error {
			p, err := s.lib.Playlist(args[0])
			if err != nil {
				return err
			}
			refs, err := s.lib.ListPlaylist(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(refs)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d entries)\n", p.Name, len(refs))
			s.lib.Read(func(v catalog.View) error {
				for _, r := range refs {
					label := "(removed)"
					if !r.Tombstone {
						label = describeTrack(v, r.TrackID)
					}
					fmt.Fprintf(out, "  %3d  %6d  %s\n", r.Position, r.TrackID, label)
				}
				return nil
			})
			return nil
		})
	},
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all playlists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			out := cmd.OutOrStdout()
			lists := s.lib.Playlists()
			if len(lists) == 0 {
				fmt.Fprintln(out, "No playlists.")
				return nil
			}
			for _, p := range lists {
				fmt.Fprintf(out, "%s  %-30s %4d entries  updated %s\n",
					p.ID, p.Name, p.Len(), p.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(playlistCmd)

	playlistAddCmd.Flags().Int("at", -1, "insert at this position instead of appending")
	playlistShowCmd.Flags().Bool("json", false, "print entries as JSON")

	playlistCmd.AddCommand(
		playlistCreateCmd,
		playlistRenameCmd,
		playlistDeleteCmd,
		playlistAddCmd,
		playlistMoveCmd,
		playlistRemoveCmd,
		playlistShowCmd,
		playlistListCmd,
	)
}

// withSession opens the catalog for the duration of fn
func withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func parsePosition(s string) (int, error) {
	pos, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return pos, nil
}
