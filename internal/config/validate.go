package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// Kinds of configuration problems, usable with errors.Is.
var (
	// ErrMissing indicates a required field was not set.
	ErrMissing = errors.New("required but not set")

	// ErrInvalid indicates a field was set to a malformed value.
	ErrInvalid = errors.New("invalid value")
)

// FieldError is a problem with a single configuration field.
type FieldError struct {
	Field   string
	Value   string
	Kind    error
	Message string
}

func (e *FieldError) Error() string {
	switch {
	case e.Kind == ErrMissing:
		return fmt.Sprintf("%s: %s", e.Field, ErrMissing)
	case e.Value != "":
		return fmt.Sprintf("%s: invalid value %q: %s", e.Field, e.Value, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
}

// Unwrap returns the error kind.
func (e *FieldError) Unwrap() error {
	return e.Kind
}

func missing(field string) *FieldError {
	return &FieldError{Field: field, Kind: ErrMissing}
}

func invalid(field, value, message string) *FieldError {
	return &FieldError{Field: field, Value: value, Kind: ErrInvalid, Message: message}
}

// ValidationError represents one or more configuration errors.
type ValidationError struct {
	Errors []*FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Unwrap exposes every field error, so errors.Is(err, ErrMissing) reports
// whether any field was missing.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}

// validate performs field and cross-field validation on the merged config.
// Secret values are never echoed back in errors.
func validate(cfg *Config) []*FieldError {
	var errs []*FieldError

	if u, err := url.Parse(cfg.UpdateURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, invalid(EnvUpdateURL, cfg.UpdateURL, "must be an absolute URL"))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, invalid(EnvUpdateURL, cfg.UpdateURL, "scheme must be http or https"))
	} else {
		cfg.endpoint = u
	}

	if strings.TrimSpace(cfg.Username) == "" {
		errs = append(errs, missing(EnvUsername))
	}
	if cfg.Password == "" {
		errs = append(errs, missing(EnvPassword))
	}
	if strings.TrimSpace(cfg.Hostnames) == "" {
		errs = append(errs, missing(EnvHostnames))
	}

	if cfg.MyIP != nil {
		if _, err := netip.ParseAddr(*cfg.MyIP); err != nil {
			errs = append(errs, invalid(EnvMyIP, *cfg.MyIP, "must be an IPv4 or IPv6 address"))
		}
	}

	if cfg.Interval < MinimumInterval {
		errs = append(errs, invalid(EnvInterval, cfg.Interval.String(), fmt.Sprintf("must be at least %s", MinimumInterval)))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, invalid(EnvRequestTimeout, cfg.RequestTimeout.String(), "must be positive"))
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid(EnvLogLevel, cfg.LogLevel, "must be debug, info, warn, or error"))
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, invalid(EnvLogFormat, cfg.LogFormat, "must be json or text"))
	}

	if cfg.HealthPort < 0 || cfg.HealthPort > 65535 {
		errs = append(errs, invalid(EnvHealthPort, fmt.Sprint(cfg.HealthPort), "must be between 0 and 65535"))
	}

	return errs
}
