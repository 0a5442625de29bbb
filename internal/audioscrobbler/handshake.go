// Package audioscrobbler implements the server side of the Audioscrobbler
// handshake and submission protocol.
//
// Handlers never touch the transport: each request is turned into a
// protocol.Response which the caller writes exactly once.
package audioscrobbler

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jfmyers9/playlistlog/internal/auth"
	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/scrobbler"
	"github.com/rs/zerolog"
)

// Authenticator verifies a handshake digest and returns the user id
type Authenticator interface {
	Authenticate(ctx context.Context, username, digest, timestamp string) (int64, error)
}

// SessionIssuer creates handshake sessions
type SessionIssuer interface {
	Create(ctx context.Context, userID, timestamp int64) (string, error)
	Validity() time.Duration
}

// Handshake handles handshake requests
type Handshake struct {
	auth     Authenticator
	sessions SessionIssuer
	endpoint string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewHandshake creates a handshake handler. endpoint is the absolute URL
// returned to clients for both now-playing and scrobble submissions.
func NewHandshake(a Authenticator, sessions SessionIssuer, endpoint string, logger zerolog.Logger) *Handshake {
	return &Handshake{
		auth:     a,
		sessions: sessions,
		endpoint: endpoint,
		now:      time.Now,
		logger:   logger.With().Str("component", "handshake").Logger(),
	}
}

// required lists the handshake parameters in validation order
var required = []struct {
	name  string
	param string
}{
	{"user", protocol.ParamUser},
	{"timestamp", protocol.ParamTimestamp},
	{"auth", protocol.ParamAuth},
	{"client-id", protocol.ParamClient},
}

// Handle runs the handshake state machine over the request query.
// Checks run in a fixed order (presence, clock, credentials) and the first
// failure ends the request.
func (h *Handshake) Handle(ctx context.Context, query url.Values) protocol.Response {
	if _, ok := query[protocol.ParamHandshake]; !ok {
		return protocol.RespWelcome
	}

	values := make(map[string]string, len(required))
	for _, r := range required {
		v := strings.TrimSpace(query.Get(r.param))
		if v == "" {
			h.logger.Debug().Str("field", r.name).Msg("Handshake missing field")
			return protocol.MissingField(r.name)
		}
		values[r.name] = v
	}

	// A timestamp that does not parse counts as the epoch and is stale.
	timestamp, _ := strconv.ParseInt(values["timestamp"], 10, 64)
	if timestamp < h.now().Add(-h.sessions.Validity()).Unix() {
		h.logger.Debug().Int64("timestamp", timestamp).Msg("Handshake timestamp too old")
		return protocol.RespBadTime
	}

	user := scrobbler.Sanitize(values["user"])
	userID, err := h.auth.Authenticate(ctx, user, scrobbler.Sanitize(values["auth"]), strconv.FormatInt(timestamp, 10))
	if err != nil {
		if errors.Is(err, auth.ErrUnknownUser) || errors.Is(err, auth.ErrBadAuth) {
			h.logger.Info().Str("user", user).Msg("Authentication failed")
			return protocol.RespBadAuth
		}
		h.logger.Error().Err(err).Str("user", user).Msg("Authentication error")
		return protocol.RespError
	}

	token, err := h.sessions.Create(ctx, userID, timestamp)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to create session")
		return protocol.RespError
	}

	h.logger.Info().
		Str("user", user).
		Str("client", values["client-id"]).
		Msg("Handshake successful")

	return protocol.Response{
		Code: protocol.RespOK.Code,
		Text: "OK\n" + token + "\n" + h.endpoint + "\n" + h.endpoint,
	}
}
