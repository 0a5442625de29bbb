package audioscrobbler

import (
	"context"
	"net/url"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/scrobbler"
	"github.com/jfmyers9/playlistlog/internal/session"
	"github.com/rs/zerolog"
)

// SessionLookup resolves a session token
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (session.Session, bool, error)
}

// TrackRecorder persists a single played track
type TrackRecorder interface {
	Record(ctx context.Context, userID int64, t scrobbler.Track) (int64, error)
}

// Submit handles now-playing and scrobble submissions
type Submit struct {
	sessions SessionLookup
	recorder TrackRecorder
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSubmit creates a submission handler
func NewSubmit(sessions SessionLookup, recorder TrackRecorder, logger zerolog.Logger) *Submit {
	return &Submit{
		sessions: sessions,
		recorder: recorder,
		now:      time.Now,
		logger:   logger.With().Str("component", "submit").Logger(),
	}
}

// Handle validates the session, classifies the form and records every
// track of a batch. The first storage failure aborts the batch.
func (s *Submit) Handle(ctx context.Context, form url.Values) protocol.Response {
	token := scrobbler.Sanitize(form.Get(protocol.ParamSession))
	sess, ok, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to look up session")
		return protocol.RespError
	}
	if !ok {
		s.logger.Debug().Msg("Submission with invalid session")
		return protocol.RespBadSession
	}

	sub := scrobbler.Parse(form, s.now())
	switch sub.Kind {
	case scrobbler.KindNowPlaying:
		s.logger.Debug().Int64("user_id", sess.UserID).Msg("Now playing ping ignored")
		return protocol.RespOK
	case scrobbler.KindMalformed:
		s.logger.Info().
			Int64("user_id", sess.UserID).
			Str("reason", sub.Reason).
			Msg("Malformed submission")
		return protocol.RespBadRequest
	}

	for _, t := range sub.Tracks {
		if _, err := s.recorder.Record(ctx, sess.UserID, t); err != nil {
			s.logger.Error().
				Err(err).
				Int64("user_id", sess.UserID).
				Str("track", t.Track).
				Msg("Failed to record track")
			return protocol.RespError
		}
	}

	s.logger.Info().
		Int64("user_id", sess.UserID).
		Int("count", len(sub.Tracks)).
		Msg("Scrobbles recorded")

	return protocol.RespOK
}
