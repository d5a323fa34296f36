// Package config handles loading and validation of the update agent's
// configuration from a config file and NOIP_* environment variables.
package config

import (
	"net/url"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/noip-updater/pkg/noip"
)

// Configuration defaults.
const (
	DefaultUpdateURL      = noip.DefaultUpdateURL
	DefaultInterval       = 5 * 24 * time.Hour
	MinimumInterval       = 5 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultHealthPort     = 8080
)

// Config holds the agent configuration. It is immutable once loaded.
type Config struct {
	// UpdateURL is the provider's update endpoint.
	UpdateURL string

	// Username and Password authenticate against the provider.
	// No-IP uses an email address as the username.
	Username string
	Password string

	// Hostnames is the comma separated list of hostnames or groups to update.
	// The provider answers one line per entry, in this order.
	Hostnames string

	// MyIP is the address to set. When nil the provider uses the address
	// the request came from, which is what clients behind NAT want.
	MyIP *string

	// Offline marks the hosts offline (YES) or online (NO). When nil the
	// parameter is not sent. Offline is an Enhanced / Plus feature.
	Offline *bool

	// Interval is the time between updates.
	Interval time.Duration

	// RequestTimeout bounds a single update request.
	RequestTimeout time.Duration

	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// HealthPort serves /health, /ready and /metrics. 0 disables the server.
	HealthPort int

	endpoint *url.URL
}

// Endpoint returns the parsed update URL.
func (c *Config) Endpoint() *url.URL {
	u := *c.endpoint
	return &u
}

// HostnamesValue returns the hostnames in the form the update query takes.
func (c *Config) HostnamesValue() *string {
	h := c.Hostnames
	return &h
}

// HostnameList returns the configured hostnames split on commas.
func (c *Config) HostnameList() []string {
	return strings.Split(c.Hostnames, ",")
}

// defaults returns a Config with every optional field at its default.
func defaults() *Config {
	return &Config{
		UpdateURL:      DefaultUpdateURL,
		Interval:       DefaultInterval,
		RequestTimeout: DefaultRequestTimeout,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		HealthPort:     DefaultHealthPort,
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the file named by NOIP_CONFIG (if any), and NOIP_* environment variables.
// All problems are collected and returned together as a *ValidationError.
func Load() (*Config, error) {
	return LoadFrom(GetConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips
// the file.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()
	var errs []*FieldError

	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, &ValidationError{Errors: []*FieldError{
				invalid(EnvConfig, path, err.Error()),
			}}
		}
		errs = append(errs, fileCfg.apply(cfg)...)
	}

	errs = append(errs, applyEnv(cfg)...)
	errs = append(errs, validate(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}
