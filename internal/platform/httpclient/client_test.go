package httpclient_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk/internal/platform/httpclient"
)

func quiet() httpclient.Option {
	return httpclient.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func failThenOK(failures int32, status int, hdr map[string]string) (http.Handler, *atomic.Int32) {
	var attempts atomic.Int32
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= failures {
			for k, v := range hdr {
				w.Header().Set(k, v)
			}
			w.WriteHeader(status)
			return
		}
		w.WriteHeader(http.StatusOK)
	}), &attempts
}

func TestClient_Do_RetriesStatuses(t *testing.T) {
	for _, status := range []int{
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusRequestTimeout,
		http.StatusTooEarly,
		http.StatusTooManyRequests,
	} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h, attempts := failThenOK(1, status, nil)
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := httpclient.New(quiet(), httpclient.WithRetries(1, time.Millisecond))
			req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
			require.NoError(t, err)

			resp, err := c.Do(context.Background(), req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, int32(2), attempts.Load())
		})
	}
}

func TestClient_Do_LastAttemptReturnsResponse(t *testing.T) {
	h, attempts := failThenOK(10, http.StatusServiceUnavailable, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(2, time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Do_NoRetriesByDefault(t *testing.T) {
	h, attempts := failThenOK(1, http.StatusInternalServerError, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet())
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Do_NoRetryOn4xx(t *testing.T) {
	h, attempts := failThenOK(1, http.StatusNotFound, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(3, time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Do_NonIdempotentMethodsNotRetried(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			h, attempts := failThenOK(1, http.StatusInternalServerError, nil)
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := httpclient.New(quiet(), httpclient.WithRetries(2, time.Millisecond))
			req, err := http.NewRequest(method, srv.URL, strings.NewReader(`{}`))
			require.NoError(t, err)

			resp, err := c.Do(context.Background(), req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestClient_Do_RetryPostWithIdempotencyKey(t *testing.T) {
	var bodies []string
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(1, time.Millisecond))
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"title":"a"}`))
	require.NoError(t, err)
	req.Header.Set("Idempotency-Key", "k1")

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, []string{`{"title":"a"}`, `{"title":"a"}`}, bodies)
}

func TestClient_Do_WithRetryMethods(t *testing.T) {
	h, attempts := failThenOK(1, http.StatusInternalServerError, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(),
		httpclient.WithRetries(1, time.Millisecond),
		httpclient.WithRetryMethods(http.MethodPut),
	)
	req, err := http.NewRequest(http.MethodPut, srv.URL, strings.NewReader("x"))
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_Do_RetryAfterHonored(t *testing.T) {
	h, _ := failThenOK(1, http.StatusTooManyRequests, map[string]string{"Retry-After": "1"})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(1, time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestClient_Do_RetryAfterPastDate(t *testing.T) {
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	h, attempts := failThenOK(1, http.StatusServiceUnavailable, map[string]string{"Retry-After": past})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(1, time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, int32(2), attempts.Load())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestClient_Do_MaxRetryDuration(t *testing.T) {
	h, attempts := failThenOK(10, http.StatusServiceUnavailable, map[string]string{"Retry-After": "5"})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(),
		httpclient.WithRetries(3, time.Millisecond),
		httpclient.WithMaxRetryDuration(100*time.Millisecond),
	)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry budget exceeded")
	var se *httpclient.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_Do_ContextCancel(t *testing.T) {
	h, _ := failThenOK(10, http.StatusServiceUnavailable, map[string]string{"Retry-After": "10"})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(3, time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Do(ctx, req)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Do_RetryNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := httpclient.New(quiet(), httpclient.WithRetries(2, time.Millisecond))
	req, err := http.NewRequest(http.MethodGet, addr, nil)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), req)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "retry:")
}

func TestClient_Do_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := httpclient.New(quiet(), httpclient.WithHeaders(map[string]string{
		"User-Agent": "ticketctl",
		"Accept":     "application/json",
	}))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "ticketctl", got.Get("User-Agent"))
	assert.Equal(t, "text/plain", got.Get("Accept"), "request headers win over defaults")
}

func TestClient_Do_BodyTooLarge(t *testing.T) {
	c := httpclient.New(quiet(), httpclient.WithMaxReplayBodySize(4))
	req, err := http.NewRequest(http.MethodPost, "http://127.0.0.1:1", io.NopCloser(strings.NewReader("too large")))
	require.NoError(t, err)
	req.GetBody = nil

	_, err = c.Do(context.Background(), req)
	assert.ErrorIs(t, err, httpclient.ErrReplayBodyTooLarge)
}

func TestClient_WithTransport(t *testing.T) {
	var called atomic.Bool
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called.Store(true)
		return &http.Response{StatusCode: http.StatusTeapot, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
	})

	c := httpclient.New(quiet(), httpclient.WithTransport(rt))
	req, err := http.NewRequest(http.MethodGet, "http://example.invalid/x", nil)
	require.NoError(t, err)

	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.True(t, called.Load())
}

func TestClient_WithJar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "auth-token", Value: "user-1.exp.signature", Path: "/"})
			return
		}
		if c, err := r.Cookie("auth-token"); err == nil {
			_, _ = io.WriteString(w, c.Value)
		}
	}))
	defer srv.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c := httpclient.New(quiet(), httpclient.WithJar(jar))

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/login", nil)
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api", nil)
	resp, err = c.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "user-1.exp.signature", string(body))
}

func TestStatusError_RetryAfter(t *testing.T) {
	err := &httpclient.StatusError{Method: "GET", URL: "http://x/y", Status: 503, After: 2 * time.Second}
	assert.EqualError(t, err, "GET http://x/y: unexpected status 503")
	assert.Equal(t, 2*time.Second, err.RetryAfter())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
