// Package protocol holds the names shared by every playlistlog component:
// the endpoint query var, taxonomy and option keys, request short codes and
// the fixed plain-text replies of the Audioscrobbler protocol.
package protocol

import (
	"net/http"
	"time"
)

const (
	// QueryVar is the endpoint path segment and the record type name.
	QueryVar = "playlistlog"

	// TaxonomyArtist is the classification namespace for artists.
	TaxonomyArtist = "playlistlog_artist"
	// TaxonomyAlbum is the classification namespace for albums.
	TaxonomyAlbum = "playlistlog_album"

	// RecordStatus is the visibility given to every played record.
	RecordStatus = "private"

	// OptionSessions is the option key holding the whole session table.
	OptionSessions = "playlistlog_sessions"

	// SessionValid is the default lifetime of a session and the maximum
	// accepted handshake clock skew.
	SessionValid = 120000 * time.Second
)

// Handshake query parameters.
const (
	ParamHandshake = "hs"
	ParamUser      = "u"
	ParamTimestamp = "t"
	ParamAuth      = "a"
	ParamClient    = "c"
)

// Submission form short codes.
const (
	ParamSession    = "s"
	CodeArtist      = "a"
	CodeTrack       = "t"
	CodeAlbum       = "b"
	CodeTrackNumber = "n"
	CodeMBID        = "m"
	CodePlayedAt    = "i"
	CodeSource      = "o"
	CodeLength      = "l"
)

// MetaCodes are the short codes copied verbatim into record metadata.
var MetaCodes = []string{CodeTrackNumber, CodeMBID, CodeSource, CodeLength}

// Response is the outcome of a protocol operation. Core handlers return it
// and a single responder writes it to the transport.
type Response struct {
	Code int
	Text string
}

// Fixed protocol replies.
var (
	RespOK         = Response{Code: http.StatusOK, Text: "OK"}
	RespWelcome    = Response{Code: http.StatusOK, Text: "Welcome to playlistlog AudioScrobbler"}
	RespBadTime    = Response{Code: http.StatusBadRequest, Text: "BADTIME"}
	RespBadAuth    = Response{Code: http.StatusUnauthorized, Text: "BADAUTH"}
	RespBadSession = Response{Code: http.StatusUnauthorized, Text: "BADSESSION"}
	RespBadRequest = Response{Code: http.StatusInternalServerError, Text: "BADREQUEST"}
	RespError      = Response{Code: http.StatusInternalServerError, Text: "ERROR"}
)

// MissingField builds the reply for an absent handshake parameter.
func MissingField(name string) Response {
	return Response{Code: http.StatusBadRequest, Text: "FAILED missing or empty " + name}
}
