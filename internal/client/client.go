// Package client is a typed HTTP client for the rangeboard API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/rangeboard/internal/domain/types"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "matchctl/1.0"
	maxErrorBody     = 64 << 10
)

// Client talks to one rangeboard server.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// New returns a client for the server at baseURL, e.g. "http://localhost:9080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Build replaces the ledger (PUT /ledger).
func (c *Client) Build(ctx context.Context, teams []string, winners []int) (types.LedgerSummary, error) {
	var out types.LedgerSummary
	err := c.do(ctx, http.MethodPut, "/ledger", nil, types.BuildRequest{Teams: teams, Winners: winners}, &out)
	return out, err
}

// AddTeam registers a team (POST /teams).
func (c *Client) AddTeam(ctx context.Context, name string, wins int) (types.LedgerSummary, error) {
	var out types.LedgerSummary
	err := c.do(ctx, http.MethodPost, "/teams", nil, types.TeamRequest{Name: name, Wins: wins}, &out)
	return out, err
}

// RemoveTeam deletes a team and the matches it won (DELETE /teams/{name}).
func (c *Client) RemoveTeam(ctx context.Context, name string) (types.LedgerSummary, error) {
	var out types.LedgerSummary
	err := c.do(ctx, http.MethodDelete, "/teams/"+url.PathEscape(name), nil, nil, &out)
	return out, err
}

// SubmitMatch queues a match won by winner (POST /matches). An empty matchID
// lets the server assign one.
func (c *Client) SubmitMatch(ctx context.Context, matchID, winner string) (types.MatchAck, error) {
	var out types.MatchAck
	err := c.do(ctx, http.MethodPost, "/matches", nil, types.MatchRequest{MatchID: matchID, Winner: winner}, &out)
	return out, err
}

// Leader returns the overall leader (GET /leader).
func (c *Client) Leader(ctx context.Context) (types.LeaderResponse, error) {
	var out types.LeaderResponse
	err := c.do(ctx, http.MethodGet, "/leader", nil, nil, &out)
	return out, err
}

// Range returns the best team over the 1-based match range from..to
// (GET /range).
func (c *Client) Range(ctx context.Context, from, to int) (types.RangeResponse, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(from))
	q.Set("to", strconv.Itoa(to))

	var out types.RangeResponse
	err := c.do(ctx, http.MethodGet, "/range", q, nil, &out)
	return out, err
}

// State returns the diagnostic ledger state (GET /state).
func (c *Client) State(ctx context.Context) (types.StateResponse, error) {
	var out types.StateResponse
	err := c.do(ctx, http.MethodGet, "/state", nil, nil, &out)
	return out, err
}

// StateText returns the plain-text rendering of the ledger state.
func (c *Client) StateText(ctx context.Context) (string, error) {
	body, err := c.raw(ctx, "/state", "text/plain")
	return string(body), err
}

// Stats returns the service statistics (GET /stats).
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out)
	return out, err
}

// Metrics returns the Prometheus exposition served on /healthz.
func (c *Client) Metrics(ctx context.Context) (string, error) {
	body, err := c.raw(ctx, "/healthz", "text/plain")
	return string(body), err
}

// OpenAPI returns the embedded API description (GET /openapi.yaml).
func (c *Client) OpenAPI(ctx context.Context) ([]byte, error) {
	return c.raw(ctx, "/openapi.yaml", "application/yaml")
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	// Keep escaped team names intact.
	u.RawPath = c.baseURL.EscapedPath() + path
	u.Path, _ = url.PathUnescape(u.RawPath)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, path, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body types.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Suggestions = body.Suggestions
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// Sentinel kinds an APIError unwraps to, keyed by HTTP status.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrThrottled   = errors.New("throttled")
	ErrUnavailable = errors.New("unavailable")
	ErrServer      = errors.New("server error")
)

// APIError is a non-2xx reply.
type APIError struct {
	StatusCode  int
	Code        string
	Message     string
	Suggestions []string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return ErrBadRequest
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return ErrConflict
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrThrottled
	case e.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	case e.StatusCode >= 500:
		return ErrServer
	default:
		return nil
	}
}

// Retryable reports whether err is a throttling reply worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, ErrThrottled)
}
