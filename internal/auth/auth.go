// Package auth verifies Audioscrobbler handshake credentials and admin
// passwords.
//
// The handshake uses a challenge-response digest:
//
//	auth = md5hex(md5hex(secret) + timestamp)
//
// so the secret never travels over the wire. The server has to know the
// secret itself to compute the expected digest, which is why scrobbler
// secrets are stored unhashed and must differ from login passwords.
package auth

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUnknownUser is returned when the login does not exist.
	ErrUnknownUser = errors.New("auth: unknown user")

	// ErrBadAuth is returned when the credential does not match.
	ErrBadAuth = errors.New("auth: bad credentials")
)

// UserStore resolves users by login
type UserStore interface {
	UserByLogin(ctx context.Context, login string) (*store.User, error)
}

// Authenticator checks handshake digests against stored scrobbler secrets
type Authenticator struct {
	users  UserStore
	logger zerolog.Logger
}

// New creates an Authenticator
func New(users UserStore, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		users:  users,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Digest computes the handshake auth token for a secret and timestamp
func Digest(secret, timestamp string) string {
	return md5hex(md5hex(secret) + timestamp)
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Authenticate verifies the digest a client sent for username at timestamp
// and returns the user's id.
func (a *Authenticator) Authenticate(ctx context.Context, username, digest, timestamp string) (int64, error) {
	user, err := a.users.UserByLogin(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		a.logger.Debug().Str("user", username).Msg("Authentication failed: user not found")
		return 0, ErrUnknownUser
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.ScrobbleSecret == "" {
		a.logger.Debug().Str("user", username).Msg("Authentication failed: no scrobbler secret set")
		return 0, ErrBadAuth
	}

	expected := Digest(user.ScrobbleSecret, timestamp)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(digest))) != 1 {
		a.logger.Debug().Str("user", username).Msg("Authentication failed: digest mismatch")
		return 0, ErrBadAuth
	}

	a.logger.Debug().Str("user", username).Msg("Authentication successful")
	return user.ID, nil
}

// HashPassword hashes a login password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a login password against its stored hash
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
