package audioscrobbler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestClient_NowPlaying(t *testing.T) {
	fs, srv := newFakeServer(t, "secret")
	c := newTestClient(t, srv.URL, "secret")

	err := c.NowPlaying(context.Background(), Track{
		Artist:   "The Beatles",
		Track:    "Yesterday",
		Album:    "Help!",
		Duration: 125,
	})
	if err != nil {
		t.Fatalf("NowPlaying failed: %v", err)
	}

	if fs.handshakeCount() != 1 {
		t.Errorf("handshakes = %d, want 1 (implicit)", fs.handshakeCount())
	}
	if len(fs.received()) != 1 {
		t.Fatalf("submissions = %d, want 1", len(fs.received()))
	}

	got := fs.received()[0]
	want := map[string]string{"s": "session-1", "a": "The Beatles", "t": "Yesterday", "b": "Help!", "l": "125"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("param %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestClient_ScrobbleBatch(t *testing.T) {
	fs, srv := newFakeServer(t, "secret")
	c := newTestClient(t, srv.URL, "secret")

	played := time.Unix(1700000000, 0)
	err := c.ScrobbleBatch(context.Background(), []Scrobble{
		{Track: Track{Artist: "Bar", Track: "Foo"}, Timestamp: played},
		{Track: Track{Artist: "Baz", Track: "Qux", Album: "Quux", TrackNumber: 3}, Timestamp: played.Add(time.Minute), Source: "R"},
	})
	if err != nil {
		t.Fatalf("ScrobbleBatch failed: %v", err)
	}

	if len(fs.received()) != 1 {
		t.Fatalf("submissions = %d, want 1", len(fs.received()))
	}

	got := fs.received()[0]
	want := map[string]string{
		"a[0]": "Bar", "t[0]": "Foo", "i[0]": "1700000000", "o[0]": "P",
		"a[1]": "Baz", "t[1]": "Qux", "i[1]": "1700000060", "o[1]": "R", "b[1]": "Quux", "n[1]": "3",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("param %s = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["t"]; ok {
		t.Error("batch must not carry a scalar t")
	}
}

func TestClient_ScrobbleBatchChunks(t *testing.T) {
	fs, srv := newFakeServer(t, "secret")
	c := newTestClient(t, srv.URL, "secret")

	scrobbles := make([]Scrobble, MaxBatchSize+5)
	for i := range scrobbles {
		scrobbles[i] = Scrobble{Track: Track{Artist: "A", Track: "T"}, Timestamp: time.Unix(int64(1000+i), 0)}
	}

	if err := c.ScrobbleBatch(context.Background(), scrobbles); err != nil {
		t.Fatalf("ScrobbleBatch failed: %v", err)
	}

	if len(fs.received()) != 2 {
		t.Fatalf("submissions = %d, want 2", len(fs.received()))
	}
	if fs.received()[1]["i[4]"] != "1054" {
		t.Errorf("second chunk i[4] = %q, want 1054", fs.received()[1]["i[4]"])
	}
}

func TestClient_ScrobbleRehandshakesOnBadSession(t *testing.T) {
	fs, srv := newFakeServer(t, "secret")
	fs.replies = []reply{{http.StatusUnauthorized, "BADSESSION"}}
	c := newTestClient(t, srv.URL, "secret")

	if err := c.Scrobble(context.Background(), Track{Artist: "Bar", Track: "Foo"}, time.Unix(1000, 0)); err != nil {
		t.Fatalf("Scrobble failed: %v", err)
	}

	if fs.handshakeCount() != 2 {
		t.Errorf("handshakes = %d, want 2", fs.handshakeCount())
	}
	if len(fs.received()) != 2 {
		t.Fatalf("submissions = %d, want 2", len(fs.received()))
	}
	if fs.received()[1]["s"] != "session-2" {
		t.Errorf("retry used session %q, want session-2", fs.received()[1]["s"])
	}
}

func TestClient_ScrobbleRetriesTemporaryError(t *testing.T) {
	fs, srv := newFakeServer(t, "secret")
	fs.replies = []reply{{http.StatusInternalServerError, "ERROR"}}
	c := newTestClient(t, srv.URL, "secret")

	if err := c.Scrobble(context.Background(), Track{Artist: "Bar", Track: "Foo"}, time.Unix(1000, 0)); err != nil {
		t.Fatalf("Scrobble failed: %v", err)
	}
	if len(fs.received()) != 2 {
		t.Errorf("submissions = %d, want 2", len(fs.received()))
	}
}

func TestClient_ScrobbleBadRequestNotRetried(t *testing.T) {
	fs, srv := newFakeServer(t, "secret")
	fs.replies = []reply{{http.StatusInternalServerError, "BADREQUEST"}}
	c := newTestClient(t, srv.URL, "secret")

	err := c.Scrobble(context.Background(), Track{Artist: "Bar", Track: "Foo"}, time.Unix(1000, 0))
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if len(fs.received()) != 1 {
		t.Errorf("submissions = %d, want 1", len(fs.received()))
	}
}

func TestClient_InvalidTrack(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1/playlistlog", "secret")

	if err := c.NowPlaying(context.Background(), Track{Artist: "Bar"}); !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("NowPlaying: expected ErrInvalidTrack, got %v", err)
	}
	err := c.ScrobbleBatch(context.Background(), []Scrobble{{Track: Track{Track: "Foo"}}})
	if !errors.Is(err, ErrInvalidTrack) {
		t.Errorf("ScrobbleBatch: expected ErrInvalidTrack, got %v", err)
	}
}
