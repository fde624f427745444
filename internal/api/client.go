// ============================================================================
// TalentHub API Client - REST transport to the remote job-board service
// ============================================================================
//
// Package: internal/api
// File: client.go
// Purpose: Issues every call the client makes against the remote service
//
// Endpoints:
//   {auth}/token/login/     POST   credentials -> auth_token
//   {auth}/token/logout/    POST   invalidate token (best effort)
//   {auth}/users/           POST   signup
//   {auth}/users/me/        GET    identity of the presented token
//   {api}/jobs/             GET    paged list, POST create
//   {api}/jobs/{id}/        PUT    update, DELETE delete
//   {api}/applications/     GET    paged list (status filter), POST apply
//   {api}/applications/{id}/ PATCH review status
//   {api}/admin/users/      GET    paged list (admin only)
//
// Headers:
//   Authorization: Token <t>   when a token is presented
//   X-Request-ID: <uuid>       taken from the context or generated per call
//
// The client holds no session state. Tokens are passed per call so the caller
// owns the session object and its verification policy.
//
// ============================================================================

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var log = slog.Default()

// Recorder receives one observation per completed request.
// Implemented by metrics.Collector.
type Recorder interface {
	ObserveRequest(method, resource string, code int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, int, time.Duration) {}

// Client talks to the TalentHub REST service.
type Client struct {
	authBase   string
	apiBase    string
	httpClient *http.Client
	recorder   Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder attaches a request recorder (metrics).
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewClient creates a client for the given auth and api base URLs.
// A nil httpClient falls back to http.DefaultClient.
func NewClient(authBase, apiBase string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		authBase:   strings.TrimRight(strings.TrimSpace(authBase), "/"),
		apiBase:    strings.TrimRight(strings.TrimSpace(apiBase), "/"),
		httpClient: httpClient,
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestIDKey struct{}

// WithRequestID stores a request id that the next call made with ctx will send.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// call describes one outbound request.
type call struct {
	method   string
	url      string
	resource string // metrics label, e.g. "jobs"
	token    string
	body     any
}

func (c *Client) authURL(path string) string {
	return c.authBase + path
}

func (c *Client) apiURL(path string, query url.Values) string {
	u := c.apiBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do sends the call and returns the raw response body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	var reader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", cl.resource, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", cl.resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Token "+cl.token)
	}
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.ObserveRequest(cl.method, cl.resource, 0, time.Since(start))
		return nil, fmt.Errorf("send %s request: %w", cl.resource, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	c.recorder.ObserveRequest(cl.method, cl.resource, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", cl.resource, err)
	}

	log.Debug("api call",
		"method", cl.method,
		"resource", cl.resource,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, payload)
	}
	return payload, nil
}

// doJSON sends the call and decodes a 2xx body into out.
func (c *Client) doJSON(ctx context.Context, cl call, out any) error {
	payload, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.resource, err)
	}
	return nil
}
