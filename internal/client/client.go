// Package client is a Go client for the ticketdesk HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"ticketdesk/internal/model"
	"ticketdesk/internal/platform/httpclient"
	"ticketdesk/internal/shared"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx answer from the server.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Unwrap classifies the answer in the shared error taxonomy.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return shared.ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return shared.ErrNotFound
	case e.Status >= 400 && e.Status < 500:
		return shared.ErrValidation
	default:
		return shared.ErrInternal
	}
}

// Client talks to one ticketdesk server and keeps its session cookie.
type Client struct {
	base *url.URL
	http *httpclient.Client
}

// Option configures the underlying httpclient.
type Option = httpclient.Option

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("parse server url: %w", err), shared.KindValidation)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, shared.MarkKind(fmt.Errorf("server url %q: scheme must be http or https", baseURL), shared.KindValidation)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	all := append([]Option{
		httpclient.WithJar(jar),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	}, opts...)
	return &Client{base: u, http: httpclient.New(all...)}, nil
}

// WithLogger logs requests to l.
func WithLogger(l *slog.Logger) Option { return httpclient.WithLogger(l) }

// WithRetries retries idempotent requests up to n times.
func WithRetries(n int) Option { return httpclient.WithRetries(n, 0) }

// Login authenticates with username and password. The session cookie is
// kept for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "pwd": password}
	var out struct {
		Result struct {
			Success bool `json:"success"`
		} `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &out); err != nil {
		return shared.Wrap(err, "login")
	}
	if !out.Result.Success {
		return shared.Wrap(shared.ErrLoginFail, "login")
	}
	return nil
}

// CreateTicket creates a ticket with the given title.
func (c *Client) CreateTicket(ctx context.Context, title string) (model.Ticket, error) {
	var t model.Ticket
	err := c.do(ctx, http.MethodPost, "/api/tickets", model.TicketForCreate{Title: title}, &t)
	return t, shared.Wrap(err, "create ticket")
}

// ListTickets returns every live ticket.
func (c *Client) ListTickets(ctx context.Context) ([]model.Ticket, error) {
	var ts []model.Ticket
	if err := c.do(ctx, http.MethodGet, "/api/tickets", nil, &ts); err != nil {
		return nil, shared.Wrap(err, "list tickets")
	}
	if ts == nil {
		ts = []model.Ticket{}
	}
	return ts, nil
}

// DeleteTicket deletes the ticket with id and returns it.
func (c *Client) DeleteTicket(ctx context.Context, id int64) (model.Ticket, error) {
	var t model.Ticket
	err := c.do(ctx, http.MethodDelete, "/api/tickets/"+strconv.FormatInt(id, 10), nil, &t)
	return t, shared.Wrapf(err, "delete ticket %d", id)
}

// Hello returns the greeting HTML for name, or the default greeting when
// name is empty.
func (c *Client) Hello(ctx context.Context, name string) (string, error) {
	path := "/hello"
	if name != "" {
		path += "?name=" + url.QueryEscape(name)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return "", shared.Wrap(err, "hello")
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", shared.Wrap(err, "hello")
	}
	return string(b), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs req and turns non-2xx answers into *APIError.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Method: req.Method,
			Path:   req.URL.Path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return shared.MarkKind(fmt.Errorf("decode response: %w", err), shared.KindInternal)
	}
	return nil
}
