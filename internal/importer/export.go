package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/scrobbler"
)

// exportScrobble is one entry of a Last.fm export day file
type exportScrobble struct {
	Track     exportTrack `json:"track"`
	Album     exportAlbum `json:"album"`
	Timestamp struct {
		ISO string `json:"iso"`
	} `json:"timestamp"`
}

type exportTrack struct {
	Name   string       `json:"name"`
	MBID   string       `json:"mbid"`
	Artist exportArtist `json:"artist"`
}

type exportAlbum struct {
	Name   string       `json:"name"`
	MBID   string       `json:"mbid"`
	Artist exportArtist `json:"artist"`
}

type exportArtist struct {
	Name string `json:"name"`
	MBID string `json:"mbid"`
}

// isoLayouts are tried in order when parsing timestamp.iso
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// toTrack maps an export entry onto a track event. It returns false when
// the entry has no title or no timestamp and cannot be recorded.
func (e exportScrobble) toTrack() (scrobbler.Track, bool) {
	title := strings.TrimSpace(e.Track.Name)
	iso := strings.TrimSpace(e.Timestamp.ISO)
	if title == "" || iso == "" {
		return scrobbler.Track{}, false
	}

	playedAt, err := parseISO(iso)
	if err != nil {
		return scrobbler.Track{}, false
	}

	t := scrobbler.Track{
		Track:    title,
		PlayedAt: playedAt,
	}

	if mbid := strings.TrimSpace(e.Track.MBID); mbid != "" {
		t.Meta = map[string]string{protocol.CodeMBID: mbid}
	}

	// The track artist wins; the album artist is the fallback. The
	// MusicBrainz id always comes from whichever artist supplied the name.
	artist := e.Track.Artist
	if strings.TrimSpace(artist.Name) == "" {
		artist = e.Album.Artist
	}
	if name := strings.TrimSpace(artist.Name); name != "" {
		t.Artist = name
		if mbid := strings.TrimSpace(artist.MBID); mbid != "" {
			t.ArtistMeta = map[string]string{protocol.CodeMBID: mbid}
		}
	}

	if name := strings.TrimSpace(e.Album.Name); name != "" {
		t.Album = name
		if mbid := strings.TrimSpace(e.Album.MBID); mbid != "" {
			t.AlbumMeta = map[string]string{protocol.CodeMBID: mbid}
		}
	}

	return t, true
}
