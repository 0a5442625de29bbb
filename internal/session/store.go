// Package session keeps the table of handshake sessions.
//
// The whole table lives under a single option key. Every read prunes
// expired sessions and writes the pruned table back, so there is no
// background cleanup.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
)

// OptionStore is the key/value storage the session table is persisted in.
// GetOption must return an error wrapping store.ErrNotFound for a missing key.
type OptionStore interface {
	GetOption(ctx context.Context, name string) ([]byte, error)
	SetOption(ctx context.Context, name string, value []byte) error
	DeleteOption(ctx context.Context, name string) error
}

// Session is a successful handshake
type Session struct {
	UserID    int64 `json:"userid"`
	Timestamp int64 `json:"timestamp"` // handshake timestamp, unix seconds
}

// IssuedAt returns the handshake timestamp as a time
func (s Session) IssuedAt() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// Store manages the persisted session table
type Store struct {
	opts     OptionStore
	validity time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewStore creates a session store. A validity of 0 uses protocol.SessionValid.
func NewStore(opts OptionStore, validity time.Duration, logger zerolog.Logger) *Store {
	if validity <= 0 {
		validity = protocol.SessionValid
	}
	return &Store{
		opts:     opts,
		validity: validity,
		now:      time.Now,
		logger:   logger.With().Str("component", "sessions").Logger(),
	}
}

// Validity returns how long a session stays valid after its handshake
func (s *Store) Validity() time.Duration {
	return s.validity
}

// Token derives the session token for a user and handshake timestamp.
// The same inputs always produce the same token.
func Token(userID, timestamp int64) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(sum[:])
}

// ListValid returns every session that has not expired. Expired sessions
// are dropped from the persisted table.
func (s *Store) ListValid(ctx context.Context) (map[string]Session, error) {
	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-s.validity).Unix()
	valid := make(map[string]Session, len(stored))
	for token, sess := range stored {
		if sess.Timestamp > cutoff {
			valid[token] = sess
			continue
		}
		s.logger.Debug().
			Int64("user_id", sess.UserID).
			Time("issued_at", sess.IssuedAt()).
			Msg("Session expired")
	}

	if len(valid) != len(stored) {
		if err := s.save(ctx, valid); err != nil {
			return nil, err
		}
	}

	return valid, nil
}

// Create stores a session for the user unless one with the same token is
// already valid, and returns the token.
func (s *Store) Create(ctx context.Context, userID, timestamp int64) (string, error) {
	token := Token(userID, timestamp)

	sessions, err := s.ListValid(ctx)
	if err != nil {
		return "", err
	}

	if _, ok := sessions[token]; ok {
		return token, nil
	}

	sessions[token] = Session{UserID: userID, Timestamp: timestamp}
	if err := s.save(ctx, sessions); err != nil {
		return "", err
	}

	s.logger.Info().Int64("user_id", userID).Msg("Session created")
	return token, nil
}

// Lookup returns the valid session identified by token
func (s *Store) Lookup(ctx context.Context, token string) (Session, bool, error) {
	if token == "" {
		return Session{}, false, nil
	}

	sessions, err := s.ListValid(ctx)
	if err != nil {
		return Session{}, false, err
	}

	sess, ok := sessions[token]
	return sess, ok, nil
}

// Clear removes every session
func (s *Store) Clear(ctx context.Context) error {
	if err := s.opts.DeleteOption(ctx, protocol.OptionSessions); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	s.logger.Info().Msg("Sessions cleared")
	return nil
}

func (s *Store) load(ctx context.Context) (map[string]Session, error) {
	data, err := s.opts.GetOption(ctx, protocol.OptionSessions)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	sessions := make(map[string]Session)
	if err := json.Unmarshal(data, &sessions); err != nil {
		// An unreadable table holds no usable sessions; start over.
		s.logger.Warn().Err(err).Msg("Discarding unreadable session table")
		return map[string]Session{}, nil
	}

	return sessions, nil
}

func (s *Store) save(ctx context.Context, sessions map[string]Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	if err := s.opts.SetOption(ctx, protocol.OptionSessions, data); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}

	return nil
}
