package audioscrobbler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Config holds client configuration.
type Config struct {
	HandshakeURL  string       // Required: protocol endpoint, e.g. "http://localhost:8080/playlistlog"
	Username      string       // Required: login on the server
	Secret        string       // Required: the user's scrobbler secret
	ClientID      string       // Optional: client identifier (defaults to "tst")
	ClientVersion string       // Optional: client version (defaults to "1.0")
	HTTPClient    *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	Logger        Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client talks to an Audioscrobbler 1.2 server on behalf of one user.
// It is safe for concurrent use.
type Client struct {
	handshakeURL  string
	username      string
	secret        string
	clientID      string
	clientVersion string
	httpClient    *http.Client
	logger        Logger

	// overridable in tests
	now         func() time.Time
	backoff     time.Duration
	maxAttempts int

	mu      sync.Mutex
	session *Session
}

const (
	// ProtocolVersion is the protocol version sent in handshakes.
	ProtocolVersion = "1.2"

	// MaxBatchSize is the largest number of scrobbles sent in one submission.
	MaxBatchSize = 50

	defaultClientID      = "tst"
	defaultClientVersion = "1.0"
)

// NewClient creates a new protocol client.
//
// Returns an error if required configuration is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.HandshakeURL == "" {
		return nil, fmt.Errorf("%w: HandshakeURL is required", ErrInvalidConfig)
	}
	if _, err := url.Parse(cfg.HandshakeURL); err != nil {
		return nil, fmt.Errorf("%w: bad HandshakeURL: %v", ErrInvalidConfig, err)
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("%w: Username is required", ErrInvalidConfig)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: Secret is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	clientVersion := cfg.ClientVersion
	if clientVersion == "" {
		clientVersion = defaultClientVersion
	}

	return &Client{
		handshakeURL:  cfg.HandshakeURL,
		username:      cfg.Username,
		secret:        cfg.Secret,
		clientID:      clientID,
		clientVersion: clientVersion,
		httpClient:    httpClient,
		logger:        cfg.Logger,
		now:           time.Now,
		backoff:       time.Second,
		maxAttempts:   3,
	}, nil
}

// Handshake authenticates with the server and stores the returned session
// for later submissions.
func (c *Client) Handshake(ctx context.Context) (*Session, error) {
	ts := strconv.FormatInt(c.now().Unix(), 10)

	params := url.Values{}
	params.Set("hs", "true")
	params.Set("p", ProtocolVersion)
	params.Set("c", c.clientID)
	params.Set("v", c.clientVersion)
	params.Set("u", c.username)
	params.Set("t", ts)
	params.Set("a", AuthToken(c.secret, ts))

	lines, err := c.call(ctx, http.MethodGet, c.handshakeURL, params)
	if err != nil {
		return nil, err
	}
	if len(lines) < 4 {
		return nil, fmt.Errorf("audioscrobbler: malformed handshake response (%d lines)", len(lines))
	}

	s := &Session{
		ID:            lines[1],
		NowPlayingURL: lines[2],
		SubmissionURL: lines[3],
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logDebugf("audioscrobbler: handshake succeeded for %s", c.username)
	return s, nil
}

// Session returns the current session, or nil before the first handshake.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetSession installs a session obtained earlier, skipping the handshake.
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// ensureSession returns the current session, handshaking if there is none.
func (c *Client) ensureSession(ctx context.Context) (*Session, error) {
	if s := c.Session(); s != nil {
		return s, nil
	}
	return c.Handshake(ctx)
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
