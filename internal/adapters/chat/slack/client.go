// Package slack provides a minimal Slack Web API client and event payload
// types for the chat intake edge
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	perr "burrito/internal/platform/errors"
	"burrito/internal/platform/logger"
)

const (
	baseURLDefault   = "https://slack.com/api"
	defaultTimeout   = 10 * time.Second
	defaultUA        = "burrito-ledger"
	defaultMaxRetry  = 3
	defaultRetryBase = 300 * time.Millisecond
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// BotToken authenticates every call. Empty means unauthenticated which
	// the Web API rejects, so callers should treat it as a config error
	BotToken string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration
}

// Client is a minimal Slack Web API client with bounded retries
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("slack"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Profile is the subset of a chat user record the ledger cares about
type Profile struct {
	ExternalID  string
	DisplayName string
}

// apiEnvelope is the common ok/error wrapper every Web API response carries
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// UsersInfo fetches the profile for one external user id
func (c *Client) UsersInfo(ctx context.Context, externalID string) (Profile, error) {
	var payload struct {
		apiEnvelope
		User struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Profile struct {
				DisplayName string `json:"display_name"`
				RealName    string `json:"real_name"`
			} `json:"profile"`
		} `json:"user"`
	}

	q := url.Values{"user": {externalID}}
	if err := c.call(ctx, http.MethodGet, "/users.info?"+q.Encode(), nil, &payload); err != nil {
		return Profile{}, err
	}
	if !payload.OK {
		return Profile{}, perr.LookupFailedf("slack users.info %s: %s", externalID, payload.Error)
	}

	name := payload.User.Profile.DisplayName
	if name == "" {
		name = payload.User.Profile.RealName
	}
	if name == "" {
		name = payload.User.Name
	}
	return Profile{ExternalID: payload.User.ID, DisplayName: name}, nil
}

// PostMessage posts text to a channel
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	body := map[string]string{"channel": channel, "text": text}

	var payload apiEnvelope
	if err := c.call(ctx, http.MethodPost, "/chat.postMessage", body, &payload); err != nil {
		return err
	}
	if !payload.OK {
		return perr.Internalf("slack chat.postMessage to %s: %s", channel, payload.Error)
	}
	return nil
}

// PublishHomeView replaces a user's home tab with the given view payload
func (c *Client) PublishHomeView(ctx context.Context, externalID string, view json.RawMessage) error {
	body := map[string]any{"user_id": externalID, "view": view}

	var payload apiEnvelope
	if err := c.call(ctx, http.MethodPost, "/views.publish", body, &payload); err != nil {
		return err
	}
	if !payload.OK {
		return perr.Internalf("slack views.publish for %s: %s", externalID, payload.Error)
	}
	return nil
}

// call issues one Web API request with auth, bounded retries on transport
// errors, 429, and transient 5xx, and decodes the JSON response into out
func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	target := c.opts.BaseURL + path

	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "slack encode request")
		}
		raw = b
	}

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var rdr io.Reader
		if raw != nil {
			rdr = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rdr)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnknown, "slack new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Authorization", "Bearer "+c.opts.BotToken)
		if raw != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "slack do failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("slack transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("slack http response")

		switch {
		case resp.StatusCode == http.StatusOK:
			defer func() { _ = resp.Body.Close() }()
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return perr.Wrapf(err, perr.ErrorCodeJSON, "slack decode response")
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header)
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return perr.Unavailablef("slack rate limited")
			}
			c.log.Warn().Dur("sleep", wait).Msg("slack rate limited backing off")
			c.sleep(wait)
			attempts++
			continue
		case resp.StatusCode >= http.StatusInternalServerError:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempts) {
				return perr.Unavailablef("slack server error %d", resp.StatusCode)
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("slack transient error retrying")
			c.sleep(back)
			attempts++
			continue
		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return perr.Newf(perr.ErrorCodeUnknown, "slack unexpected status %d body %s", resp.StatusCode, string(tail))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	ms := int64(c.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	ceiling := int64(10 * time.Second / time.Millisecond)
	if ms > ceiling {
		ms = ceiling
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

// retryAfter reads the Retry-After header in whole seconds
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	s, err := strconv.Atoi(v)
	if err != nil || s <= 0 {
		return 0
	}
	return time.Duration(s) * time.Second
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<20))
	return rc.Close()
}
