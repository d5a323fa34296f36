package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file structure.
// YAML and TOML files share the same keys.
type FileConfig struct {
	UpdateURL      string             `yaml:"update_url,omitempty" toml:"update_url"`
	Username       string             `yaml:"username,omitempty" toml:"username"`
	Password       string             `yaml:"password,omitempty" toml:"password"`
	PasswordFile   string             `yaml:"password_file,omitempty" toml:"password_file"`
	Hostnames      []string           `yaml:"hostnames,omitempty" toml:"hostnames"`
	MyIP           *string            `yaml:"myip,omitempty" toml:"myip"`
	Offline        *bool              `yaml:"offline,omitempty" toml:"offline"`
	Interval       string             `yaml:"interval,omitempty" toml:"interval"`
	RequestTimeout string             `yaml:"request_timeout,omitempty" toml:"request_timeout"`
	Logging        *FileLoggingConfig `yaml:"logging,omitempty" toml:"logging"`
	Server         *FileServerConfig  `yaml:"server,omitempty" toml:"server"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format"` // json, text
}

// FileServerConfig holds health/metrics server settings.
type FileServerConfig struct {
	Port *int `yaml:"port,omitempty" toml:"port"` // 0 disables the server
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

func (c *FileConfig) interpolateEnvVars() {
	c.UpdateURL = InterpolateEnvVars(c.UpdateURL)
	c.Username = InterpolateEnvVars(c.Username)
	c.Password = InterpolateEnvVars(c.Password)
	c.PasswordFile = InterpolateEnvVars(c.PasswordFile)
	for i := range c.Hostnames {
		c.Hostnames[i] = InterpolateEnvVars(c.Hostnames[i])
	}
	if c.MyIP != nil {
		v := InterpolateEnvVars(*c.MyIP)
		c.MyIP = &v
	}
	c.Interval = InterpolateEnvVars(c.Interval)
	c.RequestTimeout = InterpolateEnvVars(c.RequestTimeout)
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
	}
}

// LoadFile reads and parses a configuration file. Files ending in .toml are
// parsed as TOML, anything else as YAML. Environment variables in ${VAR}
// format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// apply copies every value set in the file onto cfg.
func (c *FileConfig) apply(cfg *Config) []*FieldError {
	var errs []*FieldError

	if c.UpdateURL != "" {
		cfg.UpdateURL = c.UpdateURL
	}
	if c.Username != "" {
		cfg.Username = c.Username
	}
	if c.Password != "" {
		cfg.Password = c.Password
	}
	if c.PasswordFile != "" {
		content, err := os.ReadFile(c.PasswordFile)
		if err != nil {
			errs = append(errs, invalid("password_file", c.PasswordFile, "reading secret file: "+err.Error()))
		} else {
			cfg.Password = strings.TrimSpace(string(content))
		}
	}
	if len(c.Hostnames) > 0 {
		cfg.Hostnames = strings.Join(c.Hostnames, ",")
	}
	if c.MyIP != nil && *c.MyIP != "" {
		v := *c.MyIP
		cfg.MyIP = &v
	}
	if c.Offline != nil {
		v := *c.Offline
		cfg.Offline = &v
	}
	if c.Interval != "" {
		if d, err := ParseInterval(c.Interval); err == nil {
			cfg.Interval = d
		} else {
			errs = append(errs, invalid("interval", c.Interval, err.Error()))
		}
	}
	if c.RequestTimeout != "" {
		if d, err := ParseInterval(c.RequestTimeout); err == nil {
			cfg.RequestTimeout = d
		} else {
			errs = append(errs, invalid("request_timeout", c.RequestTimeout, err.Error()))
		}
	}
	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}
	if c.Server != nil && c.Server.Port != nil {
		cfg.HealthPort = *c.Server.Port
	}

	return errs
}
