package audioscrobbler

import (
	"time"
)

// Track represents a music track for scrobbling or now playing updates.
type Track struct {
	Artist      string // Required: Artist name
	Track       string // Required: Track name
	Album       string // Optional: Album name
	Duration    int    // Optional: Track duration in seconds
	TrackNumber int    // Optional: Track number on album
	MBTrackID   string // Optional: MusicBrainz track ID
}

// Scrobble represents a single scrobble with timestamp.
type Scrobble struct {
	Track     Track     // The track being scrobbled
	Timestamp time.Time // When the track started playing
	Source    string    // Optional: source code, defaults to "P" (chosen by the user)
}

// Session is the result of a successful handshake.
type Session struct {
	ID            string // Session token sent with every submission
	NowPlayingURL string // Where now-playing notifications are posted
	SubmissionURL string // Where scrobbles are posted
}
