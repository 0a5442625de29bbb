package scrobbler

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
)

// Kind classifies the shape of a submission request
type Kind int

const (
	KindMalformed  Kind = iota // Shape violation; nothing may be recorded
	KindNowPlaying             // Ephemeral now-playing ping
	KindBatch                  // One or more played tracks
)

// String returns a human-readable representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindNowPlaying:
		return "now-playing"
	case KindBatch:
		return "batch"
	default:
		return "malformed"
	}
}

// Submission is a classified submission request. Only a KindBatch
// submission carries tracks; a KindMalformed one carries the reason.
type Submission struct {
	Kind   Kind
	Tracks []Track
	Reason string
}

// fields lists the recognised submission short codes
var fields = []string{
	protocol.CodeArtist,
	protocol.CodeTrack,
	protocol.CodeAlbum,
	protocol.CodeTrackNumber,
	protocol.CodeMBID,
	protocol.CodePlayedAt,
	protocol.CodeSource,
	protocol.CodeLength,
}

// Parse classifies a submission form and assembles its tracks.
//
// A non-empty scalar t marks a now-playing ping. Otherwise every short code
// must arrive as an indexed array (x[0], x[1], ... or x[]); entries sharing
// an index are merged into one track. Tracks without a played-at time are
// stamped with now.
func Parse(form url.Values, now time.Time) Submission {
	if v := form.Get(protocol.CodeTrack); v != "" {
		return Submission{Kind: KindNowPlaying}
	}

	entries := make(map[int]map[string]string)
	for _, code := range fields {
		values, err := indexed(form, code)
		if err != nil {
			return malformed(err.Error())
		}
		for idx, v := range values {
			if entries[idx] == nil {
				entries[idx] = make(map[string]string)
			}
			entries[idx][code] = Sanitize(v)
		}
	}

	indices := make([]int, 0, len(entries))
	for idx := range entries {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	tracks := make([]Track, 0, len(indices))
	for _, idx := range indices {
		entry := entries[idx]
		artist, title := entry[protocol.CodeArtist], entry[protocol.CodeTrack]

		if artist == "" && title == "" {
			continue
		}
		if title == "" {
			return malformed(fmt.Sprintf("track %d: missing track name", idx))
		}
		if artist == "" {
			return malformed(fmt.Sprintf("track %d: missing artist", idx))
		}

		playedAt := now
		if raw := entry[protocol.CodePlayedAt]; raw != "" {
			epoch, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return malformed(fmt.Sprintf("track %d: invalid timestamp %q", idx, raw))
			}
			playedAt = time.Unix(epoch, 0)
		}

		var meta map[string]string
		for _, code := range protocol.MetaCodes {
			if v := entry[code]; v != "" {
				if meta == nil {
					meta = make(map[string]string)
				}
				meta[code] = v
			}
		}

		tracks = append(tracks, Track{
			Artist:   artist,
			Track:    title,
			Album:    entry[protocol.CodeAlbum],
			PlayedAt: playedAt,
			Meta:     meta,
		})
	}

	return Submission{Kind: KindBatch, Tracks: tracks}
}

func malformed(reason string) Submission {
	return Submission{Kind: KindMalformed, Reason: reason}
}

// indexed collects the values submitted as code[N] or code[]. A non-empty
// bare scalar code is a shape error.
func indexed(form url.Values, code string) (map[int]string, error) {
	for _, v := range form[code] {
		if v != "" {
			return nil, fmt.Errorf("%s: expected indexed values, got scalar", code)
		}
	}

	values := make(map[int]string)
	next := 0
	var appended []string

	prefix := code + "["
	for key, vs := range form {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, "]") {
			continue
		}

		raw := key[len(prefix) : len(key)-1]
		if raw == "" {
			appended = append(appended, vs...)
			continue
		}

		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%s: invalid index %q", code, raw)
		}
		if len(vs) > 0 {
			values[idx] = vs[len(vs)-1]
		}
		if idx >= next {
			next = idx + 1
		}
	}

	for _, v := range appended {
		values[next] = v
		next++
	}

	return values, nil
}
