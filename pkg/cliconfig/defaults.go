package cliconfig

import (
	"strings"
	"time"

	"github.com/getmockd/harproxy/pkg/har"
)

// DefaultPort is the default listen port.
const DefaultPort = 3000

// DefaultMode is the default run mode.
const DefaultMode = ModePlay

// DefaultLogLevel is the default minimum log level.
const DefaultLogLevel = "info"

// DefaultLogFormat is the default console log format.
const DefaultLogFormat = "text"

// DefaultHARFile returns the archive name used when none is configured,
// e.g. recording-2026-10-16T09-30-00-000Z.har.
func DefaultHARFile(now time.Time) string {
	stamp := now.UTC().Format(har.TimeFormat)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "recording-" + stamp + ".har"
}

// NewDefault creates a new Config with default values.
func NewDefault() *Config {
	cfg := &Config{
		Port:      DefaultPort,
		Mode:      DefaultMode,
		HARFile:   DefaultHARFile(time.Now()),
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Sources:   make(map[string]string),
	}

	// Mark all as default source
	for _, key := range []string{"port", "mode", "harFile", "logLevel", "logFormat"} {
		cfg.Sources[key] = SourceDefault
	}

	return cfg
}
