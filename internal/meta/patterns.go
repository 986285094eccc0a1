package meta

import (
	"regexp"
	"strings"
)

// Release-format markers left at the end of album names by rippers and shops
var formatMarkers = []string{
	"-WEB", "_WEB", " WEB", "(WEB)", "[WEB]",
	"-VINYL", "_VINYL", " VINYL", "(VINYL)", "[VINYL]",
	"(CD)", "[CD]",
	"-EP", "_EP",
}

var (
	// Label catalog numbers: [HEAR0053], (MST027), (TIGER967BP).
	// Letters then digits, so a bracketed year is left alone.
	catalogNumberRe = regexp.MustCompile(`[-\s]*[\(\[]([A-Z]{2,6}-?\d{2,6}[A-Z]{0,3})[\)\]][-\s]*`)

	// Download-site attribution: [www.clubtone.net], [by Esprit03]
	attributionRe = regexp.MustCompile(`\s*\[(?:www\.|by\s|http)[^\]]+\]`)

	// Trailing promo markers: "-Promo", "(Promo)", "_promotion"
	promoRe = regexp.MustCompile(`(?i)\s*[-_(\[]\s*(?:promo|promotion)\s*[)\]]?\s*$`)
)

// placeholderArtists are tag values that mean "no artist"
var placeholderArtists = map[string]bool{
	"unknown":        true,
	"unknown artist": true,
	"<unknown>":      true,
	"[unknown]":      true,
	"artist":         true,
}

// StripAlbumNoise removes release-format markers, catalog numbers and
// download-site attributions from an album title before it is keyed. A title that
// would end up empty, or that looks like a URL, is returned unchanged.
func StripAlbumNoise(album string) string {
	original := strings.TrimSpace(album)
	album = original

	album = attributionRe.ReplaceAllString(album, "")
	album = catalogNumberRe.ReplaceAllString(album, " ")
	album = promoRe.ReplaceAllString(album, "")
	for trimmed := true; trimmed; {
		trimmed = false
		album = strings.TrimSpace(album)
		for _, marker := range formatMarkers {
			if strings.HasSuffix(album, marker) {
				album = strings.TrimSuffix(album, marker)
				trimmed = true
			}
		}
	}

	album = strings.Trim(collapseWhitespace(album), " -_")
	if album == "" || isURLBased(album) {
		return original
	}
	return album
}

// isPlaceholderArtist reports whether a tag value is a stand-in for a missing artist
func isPlaceholderArtist(name string) bool {
	return placeholderArtists[strings.ToLower(strings.TrimSpace(name))]
}

// isURLBased checks if string looks like a URL-based folder name
func isURLBased(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http") ||
		strings.HasPrefix(lower, "www.") ||
		strings.Contains(lower, "_soundcloud_") ||
		strings.Contains(lower, "_facebook_") ||
		strings.Contains(lower, "www_") ||
		strings.Contains(lower, "blogspot")
}
