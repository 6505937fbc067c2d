package jira

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dt-pm-tools/jira-rest-client/config"
)

// API roots relative to the JIRA base URL.
const (
	apiPath     = "rest/api/2/"
	sessionPath = "rest/auth/1/session"
)

// Client is a JIRA REST API v2 client. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	apiURL   *url.URL
	authURL  *url.URL
	username string
	password string
	timeout  time.Duration
	pageSize int

	httpClient *http.Client
	observers  []RequestObserver
	logger     *slog.Logger

	session sessionManager
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithObserver registers an observer notified after every executed request.
func WithObserver(observer RequestObserver) ClientOption {
	return func(c *Client) {
		c.observers = append(c.observers, observer)
	}
}

// WithLogger sets the logger for client diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new JIRA client from the given config.
func NewClient(cfg config.Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.WithDefaults()

	base, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing JIRA URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parsing JIRA URL: %q is not absolute", cfg.URL)
	}

	c := &Client{
		baseURL:    base,
		apiURL:     base.ResolveReference(&url.URL{Path: apiPath}),
		authURL:    base.ResolveReference(&url.URL{Path: sessionPath}),
		username:   cfg.Username,
		password:   cfg.Password,
		timeout:    cfg.Timeout,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.session.login = c.login
	return c, nil
}

// BaseURL returns the JIRA base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// do builds, executes and validates a request against the API root and
// decodes the response body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, expected int, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.send(ctx, req, expected, out)
}

// send executes a built request and validates its status.
func (c *Client) send(ctx context.Context, req *http.Request, expected int, out any) error {
	resp, err := c.execute(ctx, req)
	if err != nil {
		return err
	}
	if err := assertStatus(resp, expected); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.decode(out)
}

// issuePath formats a path below issue/{id} for ref.
func issuePath(ref IssueRef, format string, args ...any) (string, error) {
	if ref.IsZero() {
		return "", ErrIssueRefRequired
	}
	path := "issue/" + url.PathEscape(ref.Identifier())
	if format != "" {
		path += "/" + fmt.Sprintf(format, args...)
	}
	return path, nil
}

// drain discards the rest of a response body so the connection can be reused.
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
