package scrobbler

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Track is a single played-track event, whether it arrived in a live
// submission batch or from an imported archive.
type Track struct {
	Artist   string
	Track    string
	Album    string
	PlayedAt time.Time

	// Meta holds record metadata keyed by submission short code
	// (n track number, m MusicBrainz id, o source, l length).
	Meta map[string]string

	// ArtistMeta and AlbumMeta are stored on newly created terms.
	ArtistMeta map[string]string
	AlbumMeta  map[string]string
}

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Sanitize cleans a submitted text value: invalid UTF-8 and markup are
// dropped, control characters and whitespace runs become a single space,
// and the result is trimmed and NFC normalized.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}
