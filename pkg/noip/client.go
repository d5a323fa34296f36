package noip

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gitlab.bluewillows.net/root/noip-updater/pkg/httputil"
)

// Client sends update requests for a fixed account and query.
type Client struct {
	cred       *Credential
	query      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. The credential's headers are
// still set on every request.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client bound to cred's update endpoint.
// The query is serialized once; later changes to it are not observed.
func NewClient(cred *Credential, query *Query, opts ...ClientOption) *Client {
	c := &Client{
		cred:   cred,
		query:  query.String(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = httputil.NewClient(&httputil.ClientConfig{Logger: c.logger})
	}

	return c
}

// RequestURL returns the full update URL: base address plus query string.
func (c *Client) RequestURL() string {
	u := *c.cred.BaseURL
	u.RawQuery = strings.TrimPrefix(c.query, "?")
	u.ForceQuery = false
	return u.String()
}

// Send issues one update request. The caller must close the response body.
// Non-2xx statuses are not errors: the provider reports failures in the body.
func (c *Client) Send(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cred.UserAgent)
	req.Header.Set("Authorization", c.cred.Authorization())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}
