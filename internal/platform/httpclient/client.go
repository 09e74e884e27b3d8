package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"strconv"
	"time"

	"ticketdesk/pkg/retry"
)

// ErrReplayBodyTooLarge indicates request body exceeds replay limit.
var ErrReplayBodyTooLarge = errors.New("http: body too large for replay")

// Client wraps http.Client with logging and retries of idempotent requests.
type Client struct {
	hc            *stdhttp.Client
	log           *slog.Logger
	retries       int
	backoff       retry.Config
	headers       map[string]string
	retryMethods  map[string]struct{}
	maxReplayBody int64
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(t time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = t }
}

// WithLogger sets logger used by client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithRetries enables up to n retries starting from the given backoff.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		if backoff > 0 {
			c.backoff.InitialDelay = backoff
			c.backoff.MinDelay = backoff
		}
	}
}

// WithMaxBackoff limits exponential backoff growth.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff.MaxDelay = d
		}
	}
}

// WithMaxRetryDuration limits total time spent on retries.
func WithMaxRetryDuration(d time.Duration) Option {
	return func(c *Client) { c.backoff.MaxElapsedTime = d }
}

// WithHeaders adds default headers to each request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithTransport sets custom transport.
func WithTransport(rt stdhttp.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.hc.Transport = rt
		}
	}
}

// WithJar sets the cookie jar shared by every request.
func WithJar(jar stdhttp.CookieJar) Option {
	return func(c *Client) { c.hc.Jar = jar }
}

// WithRetryMethods adds methods allowed for retries.
func WithRetryMethods(methods ...string) Option {
	return func(c *Client) {
		for _, m := range methods {
			c.retryMethods[m] = struct{}{}
		}
	}
}

// WithMaxReplayBodySize limits size of buffered body for retries (0 disables limit).
func WithMaxReplayBodySize(n int64) Option {
	return func(c *Client) { c.maxReplayBody = n }
}

// New creates configured Client. Without WithRetries every request is sent once.
func New(opts ...Option) *Client {
	tr := stdhttp.DefaultTransport.(*stdhttp.Transport).Clone()
	tr.MaxIdleConnsPerHost = 16
	tr.IdleConnTimeout = 90 * time.Second
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 10 * time.Second

	c := &Client{
		hc: &stdhttp.Client{
			Timeout:   15 * time.Second,
			Transport: tr,
		},
		log: slog.Default(),
		backoff: retry.Config{
			InitialDelay:   200 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			Multiplier:     2,
			JitterStrategy: retry.JitterDecorrelated,
		},
		headers:       make(map[string]string),
		maxReplayBody: 1 << 20,
		retryMethods: map[string]struct{}{
			stdhttp.MethodGet:     {},
			stdhttp.MethodHead:    {},
			stdhttp.MethodOptions: {},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// StatusError reports a retryable HTTP status. It is only returned to the
// retry loop; the caller receives the response of the final attempt.
type StatusError struct {
	Method string
	URL    string
	Status int
	After  time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

// RetryAfter implements retry.DelayHinter.
func (e *StatusError) RetryAfter() time.Duration { return e.After }

func retryableStatus(code int) bool {
	switch code {
	case stdhttp.StatusRequestTimeout, stdhttp.StatusTooEarly, stdhttp.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code != stdhttp.StatusNotImplemented
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return true
	}
	return retry.DefaultRetryable(err)
}

// retryAfter parses Retry-After header value.
func retryAfter(h string, now time.Time) time.Duration {
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := stdhttp.ParseTime(h); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// drainAndClose drains up to 512KB from body and closes it.
func drainAndClose(b io.ReadCloser) {
	if b == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, b, 512<<10)
	_ = b.Close()
}

func (c *Client) bufferBody(req *stdhttp.Request) error {
	if req.Body == nil || req.GetBody != nil {
		return nil
	}
	defer req.Body.Close()

	var r io.Reader = req.Body
	if c.maxReplayBody > 0 {
		r = io.LimitReader(req.Body, c.maxReplayBody+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if c.maxReplayBody > 0 && int64(len(body)) > c.maxReplayBody {
		return ErrReplayBodyTooLarge
	}
	req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	req.Body, _ = req.GetBody()
	return nil
}

func (c *Client) attempts(req *stdhttp.Request) int {
	if _, ok := c.retryMethods[req.Method]; ok {
		return c.retries + 1
	}
	if req.Method == stdhttp.MethodPost && req.Header.Get("Idempotency-Key") != "" {
		return c.retries + 1
	}
	return 1
}

// Do sends HTTP request with context, logging and retries. Retryable
// statuses (408, 425, 429, 5xx) are retried while attempts remain; the
// response of the last attempt is returned as is.
func (c *Client) Do(ctx context.Context, req *stdhttp.Request) (*stdhttp.Response, error) {
	if err := c.bufferBody(req); err != nil {
		return nil, err
	}

	cfg := c.backoff
	cfg.MaxAttempts = c.attempts(req)
	u := req.URL.Redacted()
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.log.Warn("http request retry",
			slog.String("method", req.Method),
			slog.String("url", u),
			slog.Int("attempt", attempt),
			slog.Int("attempts_left", cfg.MaxAttempts-attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}

	var (
		resp    *stdhttp.Response
		attempt int
	)
	err := retry.DoWithRetryable(ctx, cfg, func(ctx context.Context) error {
		attempt++
		r := req.Clone(ctx)
		for k, v := range c.headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		if r.GetBody != nil {
			rc, err := r.GetBody()
			if err != nil {
				return err
			}
			r.Body = rc
		}

		st := time.Now()
		res, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		if retryableStatus(res.StatusCode) && attempt < cfg.MaxAttempts {
			delay := retryAfter(res.Header.Get("Retry-After"), time.Now())
			drainAndClose(res.Body)
			return &StatusError{Method: r.Method, URL: u, Status: res.StatusCode, After: delay}
		}
		c.log.Info("http request",
			slog.String("method", r.Method),
			slog.String("url", u),
			slog.Int("status", res.StatusCode),
			slog.Duration("dur", time.Since(st)),
			slog.Int("attempt", attempt),
		)
		resp = res
		return nil
	}, isRetryable)
	if err != nil {
		var exceeded *retry.RetriesExceededError
		if errors.As(err, &exceeded) && exceeded.Reason != "max attempts exceeded" {
			err = fmt.Errorf("retry budget exceeded: %w", exceeded.LastError)
		} else if exceeded != nil {
			err = exceeded.LastError
		}
		c.log.Warn("http request error",
			slog.String("method", req.Method),
			slog.String("url", u),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		return nil, err
	}
	return resp, nil
}
