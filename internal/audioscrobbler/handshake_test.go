package audioscrobbler

import (
	"context"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/playlistlog/internal/auth"
	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/session"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
)

const testEndpoint = "http://scrobble.example/playlistlog"

// session expiry runs on the wall clock, so tests handshake "now"
var testNow = time.Unix(time.Now().Unix(), 0)

// testEnv wires the handlers to an in-memory store with one user
type testEnv struct {
	store     *store.Store
	sessions  *session.Store
	handshake *Handshake
	submit    *Submit
	userID    int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	user, err := st.CreateUser(ctx, "alice", "", false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := st.SetScrobbleSecret(ctx, user.ID, "secret"); err != nil {
		t.Fatalf("SetScrobbleSecret failed: %v", err)
	}

	logger := zerolog.Nop()
	sessions := session.NewStore(st, 0, logger)

	h := NewHandshake(auth.New(st, logger), sessions, testEndpoint, logger)
	h.now = func() time.Time { return testNow }

	s := NewSubmit(sessions, newRecorder(st), logger)
	s.now = func() time.Time { return testNow }

	return &testEnv{store: st, sessions: sessions, handshake: h, submit: s, userID: user.ID}
}

func handshakeQuery(user, secret string, ts int64) url.Values {
	t := strconv.FormatInt(ts, 10)
	q := url.Values{}
	q.Set("hs", "true")
	q.Set("p", "1.2")
	q.Set("c", "tst")
	q.Set("v", "1.0")
	q.Set("u", user)
	q.Set("t", t)
	q.Set("a", auth.Digest(secret, t))
	return q
}

func TestHandshake_Welcome(t *testing.T) {
	env := newTestEnv(t)

	resp := env.handshake.Handle(context.Background(), url.Values{})
	if resp != protocol.RespWelcome {
		t.Errorf("response = %+v, want welcome", resp)
	}
}

func TestHandshake_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		drop  string
		field string
	}{
		{"u", "user"},
		{"t", "timestamp"},
		{"a", "auth"},
		{"c", "client-id"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			q := handshakeQuery("alice", "secret", testNow.Unix())
			q.Del(tt.drop)

			resp := env.handshake.Handle(context.Background(), q)
			if resp.Code != http.StatusBadRequest {
				t.Errorf("code = %d, want 400", resp.Code)
			}
			if resp.Text != "FAILED missing or empty "+tt.field {
				t.Errorf("text = %q", resp.Text)
			}
		})
	}

	t.Run("blank value counts as missing", func(t *testing.T) {
		q := handshakeQuery("alice", "secret", testNow.Unix())
		q.Set("a", "   ")

		resp := env.handshake.Handle(context.Background(), q)
		if !strings.Contains(resp.Text, "auth") || resp.Code != http.StatusBadRequest {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("first missing field wins", func(t *testing.T) {
		q := url.Values{"hs": {"true"}}

		resp := env.handshake.Handle(context.Background(), q)
		if resp.Text != "FAILED missing or empty user" {
			t.Errorf("text = %q", resp.Text)
		}
	})
}

func TestHandshake_Timestamps(t *testing.T) {
	env := newTestEnv(t)
	window := int64(protocol.SessionValid / time.Second)

	tests := []struct {
		name string
		ts   int64
		want protocol.Response
	}{
		{"current", testNow.Unix(), protocol.RespOK},
		{"at the edge of the window", testNow.Unix() - window, protocol.RespOK},
		{"beyond the window", testNow.Unix() - window - 1, protocol.RespBadTime},
		{"in the future", testNow.Unix() + 3600, protocol.RespOK},
		{"far past", math.MinInt64, protocol.RespBadTime},
		{"negative", -1, protocol.RespBadTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.handshake.Handle(context.Background(), handshakeQuery("alice", "secret", tt.ts))
			if resp.Code != tt.want.Code {
				t.Fatalf("response = %+v, want code %d", resp, tt.want.Code)
			}
			if tt.want == protocol.RespBadTime && resp != protocol.RespBadTime {
				t.Errorf("response = %+v, want BADTIME", resp)
			}
		})
	}

	t.Run("non-numeric timestamp is stale", func(t *testing.T) {
		q := handshakeQuery("alice", "secret", testNow.Unix())
		q.Set("t", "yesterday")

		resp := env.handshake.Handle(context.Background(), q)
		if resp != protocol.RespBadTime {
			t.Errorf("response = %+v, want BADTIME", resp)
		}
	})
}

func TestHandshake_BadAuth(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		user   string
		secret string
	}{
		{"wrong secret", "alice", "wrong"},
		{"unknown user", "mallory", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.handshake.Handle(context.Background(), handshakeQuery(tt.user, tt.secret, testNow.Unix()))
			if resp != protocol.RespBadAuth {
				t.Errorf("response = %+v, want BADAUTH", resp)
			}
		})
	}
}

func TestHandshake_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.handshake.Handle(ctx, handshakeQuery("alice", "secret", testNow.Unix()))
	if resp.Code != http.StatusOK || !strings.HasPrefix(resp.Text, "OK\n") {
		t.Fatalf("response = %+v", resp)
	}

	lines := strings.Split(resp.Text, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", lines)
	}
	if lines[1] != session.Token(env.userID, testNow.Unix()) {
		t.Errorf("token = %q", lines[1])
	}
	if lines[2] != testEndpoint || lines[3] != testEndpoint {
		t.Errorf("urls = %q, %q", lines[2], lines[3])
	}

	sess, ok, err := env.sessions.Lookup(ctx, lines[1])
	if err != nil || !ok {
		t.Fatalf("session not stored: %v, %v", ok, err)
	}
	if sess.UserID != env.userID {
		t.Errorf("session user = %d, want %d", sess.UserID, env.userID)
	}

	// repeating the handshake reuses the token
	again := env.handshake.Handle(ctx, handshakeQuery("alice", "secret", testNow.Unix()))
	if again.Text != resp.Text {
		t.Errorf("repeated handshake = %q, want %q", again.Text, resp.Text)
	}
	valid, err := env.sessions.ListValid(ctx)
	if err != nil {
		t.Fatalf("ListValid failed: %v", err)
	}
	if len(valid) != 1 {
		t.Errorf("sessions = %d, want 1", len(valid))
	}
}
