// Package audioscrobbler is a client for servers speaking the
// Audioscrobbler 1.2 submission protocol, such as playlistlog.
//
// # Authentication
//
// The client authenticates with a handshake. The server checks an auth
// token derived from the user's scrobbler secret and the current time,
// and answers with a session token plus the submission URLs:
//
//	client, err := audioscrobbler.NewClient(audioscrobbler.Config{
//	    HandshakeURL: "http://localhost:8080/playlistlog",
//	    Username:     "alice",
//	    Secret:       "scrobbler-secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session, err := client.Handshake(ctx)
//
// Calling Handshake explicitly is optional: submissions perform one when
// the client has no session yet, and again once if the server reports the
// session as expired.
//
// # Scrobbling
//
//	track := audioscrobbler.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	    Album:  "Help!",
//	}
//
//	// Update now playing
//	err := client.NowPlaying(ctx, track)
//
//	// Scrobble a single track
//	err = client.Scrobble(ctx, track, startedAt)
//
//	// Batch scrobble (sent in chunks of 50)
//	err = client.ScrobbleBatch(ctx, []audioscrobbler.Scrobble{
//	    {Track: track1, Timestamp: time1},
//	    {Track: track2, Timestamp: time2},
//	})
//
// # Error Handling
//
// Protocol rejections are returned as *Error and can be matched with the
// predefined values:
//
//	if errors.Is(err, audioscrobbler.ErrBadAuth) {
//	    // wrong username or secret
//	}
//
// Temporary failures are retried with exponential backoff before they are
// returned.
package audioscrobbler
