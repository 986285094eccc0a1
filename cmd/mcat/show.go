package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <track|album|artist> <id>",
	Short: "Show one catalog entity and what it links to",
	Long: `Display a track, album or artist in a human-readable format.

  track   album, credited artists, file and analysis
  album   artists, cover art and tracks in disc/track order
  artist  aliases and albums`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

var coverArtCmd = &cobra.Command{
	Use:   "cover-art <album-id> [ref]",
	Short: "Set or clear an album's cover-art reference",
	Long: `Store an opaque cover-art reference (a path, URL or hash) on an album.
Omit the reference to clear it. The image itself is never fetched.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		albumID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ref := ""
		if len(args) == 2 {
			ref = args[1]
		}

		return withSession(cmd, func(s *session) error {
			if _, err := s.lib.SetCoverArt(cmd.Context(), albumID, ref); err != nil {
				return err
			}
			if ref == "" {
				util.SuccessLog("Cleared cover art of album %d", albumID)
			} else {
				util.SuccessLog("Set cover art of album %d", albumID)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(coverArtCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[1])
	if err != nil {
		return err
	}

	return withSession(cmd, func(s *session) error {
		out := cmd.OutOrStdout()
		return s.lib.Read(func(v catalog.View) error {
			switch args[0] {
			case "track":
				return showTrack(out, v, id)
			case "album":
				return showAlbum(out, v, id)
			case "artist":
				return showArtist(out, v, id)
			default:
				return fmt.Errorf("unknown entity kind %q (use track, album or artist)", args[0])
			}
		})
	})
}

func showTrack(out io.Writer, v catalog.View, id int64) error {
	t, ok := v.Track(id)
	if !ok {
		return &util.EntityError{Op: "show", Entity: "track", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownTrack}
	}

	fmt.Fprintf(out, "Track %d: %s\n", t.ID, t.Title)
	fmt.Fprintf(out, "  Artists:  %s\n", artistNames(v, t.ArtistIDs))
	if a, ok := v.Album(t.AlbumID); ok {
		fmt.Fprintf(out, "  Album:    %d %s\n", a.ID, describeAlbum(v, a))
	}
	fmt.Fprintf(out, "  Position: disc %d, track %d\n", t.DiscNo, t.TrackNo)
	if t.DurationMs > 0 {
		fmt.Fprintf(out, "  Duration: %d:%02d\n", t.DurationMs/60000, (t.DurationMs/1000)%60)
	}
	fmt.Fprintf(out, "  File:     %s\n", t.FileRef)
	if vec, ok := v.Vector(t.ID); ok {
		fmt.Fprintf(out, "  Analysis: %d features, tempo %.1f, loudness %.1f dB\n", vec.Dim(), vec.Tempo, vec.Loudness)
	} else {
		fmt.Fprintln(out, "  Analysis: none")
	}
	return nil
}

func showAlbum(out io.Writer, v catalog.View, id int64) error {
	a, ok := v.Album(id)
	if !ok {
		return &util.EntityError{Op: "show", Entity: "album", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownAlbum}
	}

	fmt.Fprintf(out, "Album %d: %s\n", a.ID, describeAlbum(v, a))
	fmt.Fprintf(out, "  Artists: %s\n", artistNames(v, a.ArtistIDs))
	if a.CoverArtRef != "" {
		fmt.Fprintf(out, "  Cover:   %s\n", a.CoverArtRef)
	}
	tracks := v.AlbumTracks(a.ID)
	if len(tracks) == 0 {
		fmt.Fprintln(out, "  (no tracks)")
	}
	for _, t := range tracks {
		fmt.Fprintf(out, "  %d-%02d  %6d  %s\n", t.DiscNo, t.TrackNo, t.ID, t.Title)
	}
	return nil
}

func showArtist(out io.Writer, v catalog.View, id int64) error {
	a, ok := v.Artist(id)
	if !ok {
		return &util.EntityError{Op: "show", Entity: "artist", ID: strconv.FormatInt(id, 10), Err: util.ErrUnknownArtist}
	}

	fmt.Fprintf(out, "Artist %d: %s\n", a.ID, a.Name)
	if len(a.Aliases) > 0 {
		fmt.Fprintf(out, "  Aliases: %v\n", a.Aliases)
	}
	fmt.Fprintf(out, "  Tracks:  %d\n", len(v.ArtistTracks(a.ID)))
	for _, al := range v.ArtistAlbums(a.ID) {
		fmt.Fprintf(out, "  %6d  %s\n", al.ID, describeAlbum(v, al))
	}
	return nil
}
