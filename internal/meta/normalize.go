package meta

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Bracketed edition/version suffixes, e.g. "(Deluxe Edition)", "[2011 Remaster]".
	// Stripped from matching keys only; display strings keep them.
	versionSuffixRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*\([^)]*?(remix|live|acoustic|demo|instrumental|radio|edit|extended|version|mix|remaster|deluxe|bonus|anniversary|edition|unplugged|session|expanded|special|collector|explicit|clean|mono|stereo).*?\)`),
		regexp.MustCompile(`(?i)\s*\[[^\]]*?(remix|live|acoustic|demo|instrumental|radio|edit|extended|version|mix|remaster|deluxe|bonus|anniversary|edition|unplugged|session|expanded|special|collector|explicit|clean|mono|stereo).*?\]`),
		regexp.MustCompile(`(?i)\s+-\s+(remastered|remaster|deluxe edition|deluxe|expanded edition)(\s+\d{4})?$`),
	}

	punctuationReplacer = strings.NewReplacer(
		".", "",
		",", "",
		"!", "",
		"?", "",
		"'", "",
		"’", "",
		"\"", "",
		":", "",
		";", "",
		"-", " ",
		"_", " ",
		"&", " and ",
		"+", " and ",
		"/", "",
		"(", " ",
		")", " ",
		"[", " ",
		"]", " ",
	)
)

// NormalizeArtist returns the matching key for an artist name.
// "The Beat", "Beat, The" and "  the BEAT " all map to "beat".
func NormalizeArtist(artist string) string {
	if artist == "" {
		return ""
	}

	key := foldKey(artist)

	// Handle "Artist, The" before punctuation is stripped
	if strings.HasSuffix(key, ", the") {
		key = strings.TrimSuffix(key, ", the")
	}
	key = strings.TrimPrefix(key, "the ")

	key = collapseWhitespace(removePunctuation(key))
	if key == "" {
		// Names made only of punctuation ("!!!") keep their folded form
		return foldKey(artist)
	}
	return key
}

// NormalizeAlbum returns the matching key for an album title.
// Edition suffixes and release noise are dropped so "First (Deluxe Edition)"
// and "First [WEB]" both match "First".
func NormalizeAlbum(album string) string {
	if album == "" {
		return ""
	}
	album = StripAlbumNoise(album)

	key := removeVersionSuffixes(foldKey(album))
	key = collapseWhitespace(removePunctuation(key))
	if key == "" {
		return foldKey(album)
	}
	return key
}

// NormalizeTitle returns the matching key for a track title.
func NormalizeTitle(title string) string {
	if title == "" {
		return ""
	}

	key := collapseWhitespace(removePunctuation(foldKey(title)))
	if key == "" {
		return foldKey(title)
	}
	return key
}

// CleanString performs display cleaning (Unicode NFC, control chars, trim, collapse).
// Case and punctuation are preserved.
func CleanString(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFC.String(s)
	s = removeControlChars(s)
	return collapseWhitespace(s)
}

// foldKey applies NFC, Unicode case folding and whitespace cleanup.
// A Caser keeps state, so each call gets its own.
func foldKey(s string) string {
	return collapseWhitespace(cases.Fold().String(norm.NFC.String(s)))
}

// removePunctuation removes common punctuation characters
func removePunctuation(s string) string {
	return punctuationReplacer.Replace(s)
}

// collapseWhitespace replaces runs of whitespace with a single space
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// removeVersionSuffixes strips bracketed edition markers used only for matching
func removeVersionSuffixes(s string) string {
	for _, re := range versionSuffixRes {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// removeControlChars removes non-printable control characters
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			if r == '\t' || r == '\n' || r == '\r' {
				return ' '
			}
			return -1
		}
		return r
	}, s)
}
