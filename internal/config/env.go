package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvConfig         = "NOIP_CONFIG"
	EnvUpdateURL      = "NOIP_UPDATE_URL"
	EnvUsername       = "NOIP_USERNAME"
	EnvPassword       = "NOIP_PASSWORD"
	EnvHostnames      = "NOIP_HOSTNAMES"
	EnvMyIP           = "NOIP_MYIP"
	EnvOffline        = "NOIP_OFFLINE"
	EnvInterval       = "NOIP_INTERVAL"
	EnvRequestTimeout = "NOIP_REQUEST_TIMEOUT"
	EnvLogLevel       = "NOIP_LOG_LEVEL"
	EnvLogFormat      = "NOIP_LOG_FORMAT"
	EnvHealthPort     = "NOIP_HEALTH_PORT"
)

// fileSuffix marks a variable holding the path of a secret file.
const fileSuffix = "_FILE"

// GetConfigFilePath returns the config file path from NOIP_CONFIG.
// Returns empty string if no config file is specified.
func GetConfigFilePath() string {
	return getEnv(EnvConfig)
}

// getEnv retrieves an environment variable value.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrFile retrieves a value from either KEY_FILE (Docker secrets
// pattern) or KEY. The file wins when both are set; its contents are
// trimmed. A file that cannot be read is reported instead of silently
// falling back to KEY.
func getEnvOrFile(key string) (string, *FieldError) {
	if path := os.Getenv(key + fileSuffix); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", invalid(key+fileSuffix, path, "reading secret file: "+err.Error())
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(key), nil
}

// parseBool parses a boolean string.
// Accepts: true/false, 1/0, yes/no, on/off (case-insensitive).
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// applyEnv overrides cfg with any NOIP_* variable that is set.
func applyEnv(cfg *Config) []*FieldError {
	var errs []*FieldError

	if v := getEnv(EnvUpdateURL); v != "" {
		cfg.UpdateURL = v
	}

	if v, err := getEnvOrFile(EnvUsername); err != nil {
		errs = append(errs, err)
	} else if v != "" {
		cfg.Username = v
	}

	if v, err := getEnvOrFile(EnvPassword); err != nil {
		errs = append(errs, err)
	} else if v != "" {
		cfg.Password = v
	}

	if v := getEnv(EnvHostnames); v != "" {
		cfg.Hostnames = v
	}

	if v := getEnv(EnvMyIP); v != "" {
		cfg.MyIP = &v
	}

	if v := getEnv(EnvOffline); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Offline = &b
		} else {
			errs = append(errs, invalid(EnvOffline, v, "must be true or false"))
		}
	}

	if v := getEnv(EnvInterval); v != "" {
		if d, err := ParseInterval(v); err == nil {
			cfg.Interval = d
		} else {
			errs = append(errs, invalid(EnvInterval, v, err.Error()))
		}
	}

	if v := getEnv(EnvRequestTimeout); v != "" {
		if d, err := ParseInterval(v); err == nil {
			cfg.RequestTimeout = d
		} else {
			errs = append(errs, invalid(EnvRequestTimeout, v, err.Error()))
		}
	}

	if v := getEnv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if v := getEnv(EnvLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	if v := getEnv(EnvHealthPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.HealthPort = port
		} else {
			errs = append(errs, invalid(EnvHealthPort, v, "invalid integer"))
		}
	}

	return errs
}
