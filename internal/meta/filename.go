package meta

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// PathHints holds metadata inferred from a file's name and directories
type PathHints struct {
	Artist  string
	Album   string
	Title   string
	TrackNo int
	DiscNo  int
	Year    int
}

type namePattern struct {
	re    *regexp.Regexp
	parse func(*PathHints, []string)
}

// Tried in order; the first match wins
var namePatterns = []namePattern{
	{
		// "01 - Artist - Title"
		re: regexp.MustCompile(`^(\d+)\s*[-_.]\s*(.+?)\s+-\s+(.+)$`),
		parse: func(h *PathHints, m []string) {
			h.TrackNo, _ = strconv.Atoi(m[1])
			h.Artist = strings.TrimSpace(m[2])
			h.Title = strings.TrimSpace(m[3])
		},
	},
	{
		// "01 - Title", "01. Title", "01_Title"
		re: regexp.MustCompile(`^(\d+)\s*[-_.]\s*(.+)$`),
		parse: func(h *PathHints, m []string) {
			h.TrackNo, _ = strconv.Atoi(m[1])
			h.Title = strings.TrimSpace(strings.ReplaceAll(m[2], "_", " "))
		},
	},
	{
		// "Artist - Title"
		re: regexp.MustCompile(`^(.+?)\s+-\s+(.+)$`),
		parse: func(h *PathHints, m []string) {
			h.Artist = strings.TrimSpace(m[1])
			h.Title = strings.TrimSpace(m[2])
		},
	},
}

var (
	discDirRe    = regexp.MustCompile(`^(?i)(?:disc|cd|disk)\s*(\d+)$`)
	yearPrefixRe = regexp.MustCompile(`^(\d{4})\s*[-_.]\s*(.+)$`)
	yearSuffixRe = regexp.MustCompile(`^(.+?)\s*\((\d{4})\)$`)
)

// ParsePath infers metadata from an Artist/Album[/Disc N]/NN - Title layout
func ParsePath(path string) PathHints {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	h := PathHints{Title: name}
	for _, p := range namePatterns {
		if m := p.re.FindStringSubmatch(name); m != nil {
			p.parse(&h, m)
			break
		}
	}

	h.inferFromDirs(filepath.Dir(path))
	return h
}

func (h *PathHints) inferFromDirs(dir string) {
	parts := strings.Split(filepath.Clean(dir), string(filepath.Separator))
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}

	if n := len(parts); n > 0 {
		if m := discDirRe.FindStringSubmatch(parts[n-1]); m != nil {
			h.DiscNo, _ = strconv.Atoi(m[1])
			parts = parts[:n-1]
		}
	}
	if len(parts) < 2 {
		return
	}

	album := parts[len(parts)-1]
	if m := yearPrefixRe.FindStringSubmatch(album); m != nil {
		h.Year, _ = strconv.Atoi(m[1])
		album = strings.TrimSpace(m[2])
	} else if m := yearSuffixRe.FindStringSubmatch(album); m != nil {
		album = strings.TrimSpace(m[1])
		h.Year, _ = strconv.Atoi(m[2])
	}
	h.Album = album

	if h.Artist == "" {
		h.Artist = parts[len(parts)-2]
	}
}

// Fill copies hints into the record's empty fields only
func (h PathHints) Fill(rec *RawFileRecord) {
	if strings.TrimSpace(rec.Title) == "" {
		rec.Title = h.Title
	}
	if strings.TrimSpace(rec.Artist) == "" {
		rec.Artist = h.Artist
	}
	if strings.TrimSpace(rec.Album) == "" {
		rec.Album = h.Album
	}
	if rec.TrackNo == 0 {
		rec.TrackNo = h.TrackNo
	}
	if rec.DiscNo == 0 {
		rec.DiscNo = h.DiscNo
	}
	if rec.Year == 0 {
		rec.Year = h.Year
	}
}
