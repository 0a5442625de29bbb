package audioscrobbler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// call sends params to target and returns the reply lines of an OK
// response. GET requests carry params in the query string, POST requests
// in a form-encoded body.
//
// Network errors and temporary replies are retried with exponential
// backoff; everything else is returned as is.
func (c *Client) call(ctx context.Context, method, target string, params url.Values) ([]string, error) {
	var lastErr error
	backoff := c.backoff

	for i := 0; i < c.maxAttempts; i++ {
		c.logDebugf("audioscrobbler: %s %s (attempt %d/%d)", method, target, i+1, c.maxAttempts)

		req, err := newRequest(ctx, method, target, params)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if shouldRetryNetworkError(err) && i < c.maxAttempts-1 {
				c.logDebugf("audioscrobbler: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, fmt.Errorf("http request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		lines := splitLines(string(body))
		if resp.StatusCode == http.StatusOK && len(lines) > 0 && lines[0] == ReplyOK {
			return lines, nil
		}

		var first string
		if len(lines) > 0 {
			first = lines[0]
		}
		replyErr := &Error{StatusCode: resp.StatusCode, Reply: first}

		if replyErr.Temporary() && i < c.maxAttempts-1 {
			c.logDebugf("audioscrobbler: temporary error, retrying: %v", replyErr)
			lastErr = replyErr
			if !sleep(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}

		return nil, replyErr
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func newRequest(ctx context.Context, method, target string, params url.Values) (*http.Request, error) {
	var req *http.Request
	var err error

	switch method {
	case http.MethodGet:
		u, perr := url.Parse(target)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse url: %w", perr)
		}
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "playlistlog/1.0")
	return req, nil
}

// splitLines splits a reply body into trimmed, non-empty lines.
func splitLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	t := time.NewTimer(duration)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential increase.
// Maximum backoff is capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
