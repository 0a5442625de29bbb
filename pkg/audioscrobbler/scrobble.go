package audioscrobbler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// NowPlaying tells the server which track just started. Nothing is
// recorded server side.
//
// Example:
//
//	err := client.NowPlaying(ctx, audioscrobbler.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	})
func (c *Client) NowPlaying(ctx context.Context, track Track) error {
	if track.Artist == "" || track.Track == "" {
		return ErrInvalidTrack
	}

	params := url.Values{}
	params.Set("a", track.Artist)
	params.Set("t", track.Track)
	params.Set("b", track.Album)
	params.Set("l", optionalInt(track.Duration))
	params.Set("n", optionalInt(track.TrackNumber))
	params.Set("m", track.MBTrackID)

	return c.submit(ctx, func(s *Session) string { return s.NowPlayingURL }, params)
}

// Scrobble submits a single track that started playing at timestamp.
func (c *Client) Scrobble(ctx context.Context, track Track, timestamp time.Time) error {
	return c.ScrobbleBatch(ctx, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits up to MaxBatchSize played tracks in one request.
// Longer slices are sent in several requests, in order; the first failure
// stops the remaining requests.
//
// Example:
//
//	err := client.ScrobbleBatch(ctx, []audioscrobbler.Scrobble{
//	    {Track: track1, Timestamp: time1},
//	    {Track: track2, Timestamp: time2},
//	})
func (c *Client) ScrobbleBatch(ctx context.Context, scrobbles []Scrobble) error {
	for _, s := range scrobbles {
		if s.Track.Artist == "" || s.Track.Track == "" {
			return ErrInvalidTrack
		}
	}

	for len(scrobbles) > 0 {
		n := min(len(scrobbles), MaxBatchSize)
		if err := c.submit(ctx, func(s *Session) string { return s.SubmissionURL }, batchParams(scrobbles[:n])); err != nil {
			return err
		}
		scrobbles = scrobbles[n:]
	}

	return nil
}

// batchParams encodes scrobbles with indexed keys.
func batchParams(scrobbles []Scrobble) url.Values {
	params := url.Values{}
	for i, s := range scrobbles {
		idx := fmt.Sprintf("[%d]", i)
		params.Set("a"+idx, s.Track.Artist)
		params.Set("t"+idx, s.Track.Track)
		params.Set("i"+idx, strconv.FormatInt(s.Timestamp.Unix(), 10))

		source := s.Source
		if source == "" {
			source = "P"
		}
		params.Set("o"+idx, source)
		params.Set("r"+idx, "")
		params.Set("b"+idx, s.Track.Album)
		params.Set("l"+idx, optionalInt(s.Track.Duration))
		params.Set("n"+idx, optionalInt(s.Track.TrackNumber))
		params.Set("m"+idx, s.Track.MBTrackID)
	}
	return params
}

// submit posts params with the session token. A BADSESSION reply triggers
// one fresh handshake and a second attempt.
func (c *Client) submit(ctx context.Context, target func(*Session) string, params url.Values) error {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	params.Set("s", sess.ID)
	_, err = c.call(ctx, http.MethodPost, target(sess), params)
	if !errors.Is(err, ErrBadSession) {
		return err
	}

	c.logDebugf("audioscrobbler: session rejected, handshaking again")
	sess, err = c.Handshake(ctx)
	if err != nil {
		return err
	}

	params.Set("s", sess.ID)
	_, err = c.call(ctx, http.MethodPost, target(sess), params)
	return err
}

func optionalInt(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}
