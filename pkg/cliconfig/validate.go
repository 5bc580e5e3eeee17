package cliconfig

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/getmockd/harproxy/pkg/recording"
)

// MsgTargetRequired is the message for record mode without an upstream.
const MsgTargetRequired = "--target-url is required when --mode is 'record'"

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

var validLogFormats = map[string]bool{"text": true, "json": true}

// Validate checks the merged configuration. The first problem found is
// returned as a *ConfigError.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModePlay, ModeRecord:
	default:
		return invalid("--mode must be %q or %q, got %q", ModePlay, ModeRecord, c.Mode)
	}

	if c.Port < 0 || c.Port > 65535 {
		return invalid("port %d is out of range (0-65535)", c.Port)
	}

	if c.Mode == ModeRecord && c.TargetURL == "" {
		return &ConfigError{Message: MsgTargetRequired}
	}
	if c.TargetURL != "" {
		if _, err := c.Target(); err != nil {
			return &ConfigError{Message: err.Error(), Err: err}
		}
	}

	if strings.TrimSpace(c.HARFile) == "" {
		return invalid("--har-file must not be empty")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return invalid("--log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		return invalid("--log-format must be text or json, got %q", c.LogFormat)
	}

	if err := c.Filter().Validate(); err != nil {
		return &ConfigError{Message: err.Error(), Err: err}
	}

	if _, err := c.MaxBodyBytes(); err != nil {
		return &ConfigError{Message: err.Error(), Err: err}
	}

	return nil
}

func invalid(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// Target parses TargetURL, which must be an absolute http or https URL.
func (c *Config) Target() (*url.URL, error) {
	u, err := url.Parse(c.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("--target-url %q: %w", c.TargetURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("--target-url %q must be an absolute http or https URL", c.TargetURL)
	}
	return u, nil
}

// Filter returns the recording filter, or nil when no pattern is set.
func (c *Config) Filter() *recording.FilterConfig {
	f := &recording.FilterConfig{
		IncludePaths: c.IncludePaths,
		ExcludePaths: c.ExcludePaths,
		IncludeHosts: c.IncludeHosts,
		ExcludeHosts: c.ExcludeHosts,
	}
	if f.IsEmpty() {
		return nil
	}
	return f
}

// MaxBodyBytes parses MaxBodySize. Zero means no limit.
func (c *Config) MaxBodyBytes() (int64, error) {
	if c.MaxBodySize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(c.MaxBodySize)
	if err != nil {
		return 0, fmt.Errorf("--max-body-size %q: %w", c.MaxBodySize, err)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("--max-body-size %q is too large", c.MaxBodySize)
	}
	return int64(n), nil
}
