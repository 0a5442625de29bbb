package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/jfmyers9/playlistlog/internal/config"
	"github.com/jfmyers9/playlistlog/internal/spool"
	"github.com/jfmyers9/playlistlog/pkg/audioscrobbler"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	scrobbleURL        string
	scrobbleUser       string
	scrobbleSecret     string
	scrobbleAlbum      string
	scrobbleDuration   int
	scrobbleAt         string
	scrobbleNowPlaying bool
	scrobbleFlush      bool
)

// spoolRetention is how long delivered spool entries are kept
const spoolRetention = 7 * 24 * time.Hour

// scrobbleCmd represents the scrobble command
var scrobbleCmd = &cobra.Command{
	Use:   "scrobble <artist> <track>",
	Short: "Submit a track to a playlistlog server",
	Long: `Submit a track the way a music player would: handshake with the
server, then send either a now-playing notification or a scrobble.

The secret can also be given in the PLAYLISTLOG_SECRET environment
variable.

Scrobbles that fail because the server is unreachable or temporarily
failing are spooled locally and resent by the next successful scrobble,
or explicitly with --flush.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if scrobbleFlush {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runScrobble,
}

func init() {
	rootCmd.AddCommand(scrobbleCmd)

	scrobbleCmd.Flags().StringVar(&scrobbleURL, "url", "", "Protocol endpoint (default: <base_url>/playlistlog)")
	scrobbleCmd.Flags().StringVarP(&scrobbleUser, "user", "u", "", "Login to scrobble as (required)")
	scrobbleCmd.Flags().StringVar(&scrobbleSecret, "secret", "", "Scrobbler secret of the user")
	scrobbleCmd.Flags().StringVarP(&scrobbleAlbum, "album", "b", "", "Album name")
	scrobbleCmd.Flags().IntVarP(&scrobbleDuration, "duration", "l", 0, "Track length in seconds")
	scrobbleCmd.Flags().StringVar(&scrobbleAt, "at", "", "When the track started, RFC 3339 or unix seconds (default: now)")
	scrobbleCmd.Flags().BoolVar(&scrobbleNowPlaying, "now-playing", false, "Send a now-playing notification instead of a scrobble")
	scrobbleCmd.Flags().BoolVar(&scrobbleFlush, "flush", false, "Resend spooled scrobbles and exit")
	_ = scrobbleCmd.MarkFlagRequired("user")
}

// sdkLogger adapts zerolog to the client SDK's Logger interface
type sdkLogger struct {
	zerolog.Logger
}

func (l sdkLogger) Debugf(format string, args ...interface{}) {
	l.Debug().Msgf(format, args...)
}

func runScrobble(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	endpoint := scrobbleURL
	if endpoint == "" {
		endpoint = cfg.EndpointURL()
	}
	secret := scrobbleSecret
	if secret == "" {
		secret = os.Getenv("PLAYLISTLOG_SECRET")
	}

	logger := cliLogger(cfg)

	client, err := audioscrobbler.NewClient(audioscrobbler.Config{
		HandshakeURL:  endpoint,
		Username:      scrobbleUser,
		Secret:        secret,
		ClientID:      "plg",
		ClientVersion: version,
		Logger:        sdkLogger{logger},
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	sp, err := spool.Open(cfg.SpoolDBPath())
	if err != nil {
		return err
	}
	defer func() { _ = sp.Close() }()

	if scrobbleFlush {
		res, err := flushSpool(ctx, client, sp, scrobbleUser)
		if err != nil {
			return fmt.Errorf("flush failed after %d scrobbles: %w", res.Sent, err)
		}
		fmt.Printf("✓ Sent %d spooled scrobbles\n", res.Sent)
		printRejected(res)
		return nil
	}

	track := audioscrobbler.Track{
		Artist:   args[0],
		Track:    args[1],
		Album:    scrobbleAlbum,
		Duration: scrobbleDuration,
	}

	if scrobbleNowPlaying {
		if err := client.NowPlaying(ctx, track); err != nil {
			return fmt.Errorf("now playing failed: %w", err)
		}
		fmt.Printf("✓ Now playing: %s - %s\n", track.Artist, track.Track)
		return nil
	}

	playedAt, err := parsePlayedAt(scrobbleAt, time.Now())
	if err != nil {
		return err
	}

	if err := client.Scrobble(ctx, track, playedAt); err != nil {
		if !shouldSpool(err) {
			return fmt.Errorf("scrobble failed: %w", err)
		}

		// The request context may be spent; spooling uses a fresh one.
		if _, spoolErr := sp.Add(context.Background(), spool.Entry{
			User:     scrobbleUser,
			Artist:   track.Artist,
			Track:    track.Track,
			Album:    track.Album,
			Duration: track.Duration,
			PlayedAt: playedAt,
			Error:    err.Error(),
		}); spoolErr != nil {
			return fmt.Errorf("scrobble failed: %w (spooling also failed: %v)", err, spoolErr)
		}

		fmt.Printf("⚠ Server unavailable, spooled: %s - %s\n", track.Artist, track.Track)
		return nil
	}

	fmt.Printf("✓ Scrobbled: %s - %s\n", track.Artist, track.Track)

	res, err := flushSpool(ctx, client, sp, scrobbleUser)
	if err != nil {
		logger.Warn().Err(err).Msg("Spooled scrobbles could not be sent")
	} else if res.Sent > 0 {
		fmt.Printf("✓ Sent %d spooled scrobbles\n", res.Sent)
	}
	printRejected(res)

	return nil
}

// scrobbleSubmitter is the part of the client used to drain the spool
type scrobbleSubmitter interface {
	ScrobbleBatch(ctx context.Context, scrobbles []audioscrobbler.Scrobble) error
}

// flushResult counts what a spool flush did
type flushResult struct {
	Sent     int
	Rejected int
}

// flushSpool resends pending spool entries of user in batches, oldest
// first. A batch the server refuses for good is resent one entry at a
// time so only the refused entries are dropped. A temporary failure stops
// the flush and leaves the rest pending.
func flushSpool(ctx context.Context, client scrobbleSubmitter, sp *spool.Spool, user string) (flushResult, error) {
	var res flushResult
	for {
		entries, err := sp.Pending(ctx, user, audioscrobbler.MaxBatchSize)
		if err != nil {
			return res, err
		}
		if len(entries) == 0 {
			break
		}

		err = client.ScrobbleBatch(ctx, toScrobbles(entries))
		switch {
		case err == nil:
			if err := sp.MarkDelivered(ctx, entryIDs(entries)); err != nil {
				return res, err
			}
			res.Sent += len(entries)
		case shouldSpool(err):
			_ = sp.MarkError(context.Background(), entryIDs(entries), err.Error())
			return res, err
		case len(entries) == 1:
			if err := sp.MarkRejected(ctx, entryIDs(entries), err.Error()); err != nil {
				return res, err
			}
			res.Rejected++
		default:
			for _, e := range entries {
				if err := sendOne(ctx, client, sp, e, &res); err != nil {
					return res, err
				}
			}
		}
	}

	if _, err := sp.Cleanup(ctx, time.Now().Add(-spoolRetention)); err != nil {
		return res, err
	}

	return res, nil
}

// sendOne delivers a single spooled entry, settling it as sent or
// rejected. Only a temporary failure is returned.
func sendOne(ctx context.Context, client scrobbleSubmitter, sp *spool.Spool, e spool.Entry, res *flushResult) error {
	ids := []int64{e.ID}

	err := client.ScrobbleBatch(ctx, toScrobbles([]spool.Entry{e}))
	switch {
	case err == nil:
		if err := sp.MarkDelivered(ctx, ids); err != nil {
			return err
		}
		res.Sent++
	case shouldSpool(err):
		_ = sp.MarkError(context.Background(), ids, err.Error())
		return err
	default:
		if err := sp.MarkRejected(ctx, ids, err.Error()); err != nil {
			return err
		}
		res.Rejected++
	}

	return nil
}

func toScrobbles(entries []spool.Entry) []audioscrobbler.Scrobble {
	batch := make([]audioscrobbler.Scrobble, len(entries))
	for i, e := range entries {
		batch[i] = audioscrobbler.Scrobble{
			Track: audioscrobbler.Track{
				Artist:   e.Artist,
				Track:    e.Track,
				Album:    e.Album,
				Duration: e.Duration,
			},
			Timestamp: e.PlayedAt,
		}
	}
	return batch
}

func entryIDs(entries []spool.Entry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func printRejected(res flushResult) {
	if res.Rejected > 0 {
		fmt.Printf("⚠ Dropped %d spooled scrobbles the server rejected\n", res.Rejected)
	}
}

// shouldSpool reports whether a failed scrobble may succeed later
func shouldSpool(err error) bool {
	var protoErr *audioscrobbler.Error
	if errors.As(err, &protoErr) {
		return protoErr.Temporary()
	}

	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)
}

// parsePlayedAt accepts RFC 3339 or unix seconds; empty means now
func parsePlayedAt(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or unix seconds", s)
	}
	return t, nil
}
