package audioscrobbler

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-OK protocol reply.
//
// Reply holds the first line of the response body, e.g. "BADAUTH" or
// "FAILED missing or empty user". Two errors match under errors.Is when
// their replies are equal, so the predefined values below can be used as
// targets regardless of the HTTP status that carried them.
type Error struct {
	StatusCode int    // HTTP status code of the reply
	Reply      string // First line of the reply body
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("audioscrobbler: %d %s", e.StatusCode, e.Reply)
}

// Is checks if the target error carries the same reply.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Reply == t.Reply
}

// Temporary returns true if the request may succeed when retried.
//
// A server-side storage failure ("ERROR") and non-protocol 5xx replies
// from proxies are temporary. Protocol rejections are not.
func (e *Error) Temporary() bool {
	switch e.Reply {
	case ReplyError:
		return true
	case ReplyBadAuth, ReplyBadTime, ReplyBadSession, ReplyBadRequest:
		return false
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// Protocol reply words.
const (
	ReplyOK         = "OK"
	ReplyBadAuth    = "BADAUTH"
	ReplyBadTime    = "BADTIME"
	ReplyBadSession = "BADSESSION"
	ReplyBadRequest = "BADREQUEST"
	ReplyError      = "ERROR"
)

// Predefined errors for errors.Is comparisons.
var (
	ErrBadAuth    = &Error{Reply: ReplyBadAuth}
	ErrBadTime    = &Error{Reply: ReplyBadTime}
	ErrBadSession = &Error{Reply: ReplyBadSession}
	ErrBadRequest = &Error{Reply: ReplyBadRequest}
	ErrServer     = &Error{Reply: ReplyError}

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("audioscrobbler: invalid configuration")

	// ErrInvalidTrack is returned before sending a track without artist or title.
	ErrInvalidTrack = errors.New("audioscrobbler: artist and track are required")
)
