// Package httputil provides the HTTP client used to talk to update endpoints.
package httputil

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"
)

// Default HTTP client configuration values.
const (
	// DefaultTimeout bounds a single update request.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is used when no custom user agent is specified.
	DefaultUserAgent = "noip-updater/1.0"
)

// ClientConfig contains configuration for creating an HTTP client.
type ClientConfig struct {
	// Timeout is the HTTP client timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// TLSSkipVerify disables TLS certificate verification.
	// Only meant for test endpoints with self-signed certificates.
	TLSSkipVerify bool

	// UserAgent is sent with every request that does not set its own.
	UserAgent string

	// Logger enables debug logging for HTTP requests.
	Logger *slog.Logger
}

// headerTransport adds default request headers and optionally logs
// requests at debug level.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
	logger  *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	missing := false
	for name := range t.headers {
		if req.Header.Get(name) == "" {
			missing = true
			break
		}
	}
	if missing {
		// RoundTrippers must not modify the caller's request.
		req = req.Clone(req.Context())
		for name, values := range t.headers {
			if req.Header.Get(name) == "" {
				req.Header[name] = values
			}
		}
	}

	if t.logger != nil {
		t.logger.Debug("HTTP request",
			slog.String("method", req.Method),
			slog.String("url", redact(req).String()),
		)
	}

	resp, err := t.base.RoundTrip(req)

	if t.logger != nil && resp != nil {
		t.logger.Debug("HTTP response",
			slog.String("method", req.Method),
			slog.String("url", redact(req).String()),
			slog.Int("status", resp.StatusCode),
		)
	}

	return resp, err
}

// NewClient creates an HTTP client with the specified configuration.
// If cfg is nil, defaults are used (30s timeout, TLS verification enabled).
func NewClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = &ClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	baseTransport := http.DefaultTransport
	if cfg.TLSSkipVerify {
		baseTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, //nolint:gosec // Intentional: user explicitly requested skip
			},
		}
	}

	headers := http.Header{}
	headers.Set("User-Agent", userAgent)

	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:    baseTransport,
			headers: headers,
			logger:  cfg.Logger,
		},
	}
}
