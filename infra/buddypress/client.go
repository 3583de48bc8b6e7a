package buddypress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coralnet/reefhub/domain"
	"github.com/coralnet/reefhub/infra/auth"
)

// DefaultTimeout bounds every request issued by a Client.
const DefaultTimeout = 15 * time.Second

const maxErrorBody = 256

// Client is a thin HTTP wrapper for the WordPress REST API.
// It handles base URL construction, bearer token injection and per-request timeouts.
type Client struct {
	apiRoot       string
	tokenProvider auth.TokenProvider
	http          *http.Client
	timeout       time.Duration
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the site at baseURL (e.g. "https://reefhub.org").
func NewClient(baseURL string, tp auth.TokenProvider, opts ...Option) *Client {
	c := &Client{
		apiRoot:       strings.TrimRight(baseURL, "/") + "/wp-json",
		tokenProvider: tp,
		http:          &http.Client{},
		timeout:       DefaultTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes a single API call relative to the /wp-json root.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	// Auth requires a bearer token; without one the call fails locally
	// with domain.ErrUnauthenticated. Anonymous calls still send a token
	// when one is available.
	Auth bool
}

// Response is a successful (2xx) reply.
type Response struct {
	Status int
	Body   []byte
}

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// StatusOf returns the HTTP status carried by err, or 0 if err is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsWrongEndpoint reports whether err means the route or method does not fit
// this backend, as opposed to a genuine failure.
func IsWrongEndpoint(err error) bool {
	switch StatusOf(err) {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusMethodNotAllowed:
		return true
	}
	return false
}

// HasToken reports whether the client currently holds a session token.
func (c *Client) HasToken() bool {
	if c.tokenProvider == nil {
		return false
	}
	_, err := c.tokenProvider.AccessToken()
	return err == nil
}

// Get performs an anonymous-capable GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Do performs the request under the client's timeout.
func (c *Client) Do(ctx context.Context, r Request) (Response, error) {
	token, err := c.token(r.Auth)
	if err != nil {
		return Response{}, err
	}

	u := c.apiRoot + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Form != nil {
		body = strings.NewReader(r.Form.Encode())
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("request to %s: %w", r.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}
	c.logger.Debug("api request", "method", r.Method, "path", r.Path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return Response{}, &APIError{Method: r.Method, Path: r.Path, Status: resp.StatusCode, Body: msg}
	}

	return Response{Status: resp.StatusCode, Body: data}, nil
}

func (c *Client) token(required bool) (string, error) {
	if c.tokenProvider == nil {
		if required {
			return "", domain.ErrUnauthenticated
		}
		return "", nil
	}
	token, err := c.tokenProvider.AccessToken()
	if err != nil {
		if required {
			return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
		}
		return "", nil
	}
	return token, nil
}
