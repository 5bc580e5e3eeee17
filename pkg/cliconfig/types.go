// Package cliconfig provides configuration types and loading for the harproxy CLI.
package cliconfig

// Config represents the complete configuration for the harproxy CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Config file (--config, HARPROXY_CONFIG, or .harproxyrc.yaml in the current directory)
// 4. Default values (lowest priority)
type Config struct {
	// Server settings
	Port      int    `yaml:"port" json:"port"`
	Mode      string `yaml:"mode" json:"mode"`
	TargetURL string `yaml:"targetUrl,omitempty" json:"targetUrl,omitempty"`
	HARFile   string `yaml:"harFile" json:"harFile"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`
	LogFile   string `yaml:"logFile,omitempty" json:"logFile,omitempty"`

	// Recording settings
	IncludePaths  []string `yaml:"includePaths,omitempty" json:"includePaths,omitempty"`
	ExcludePaths  []string `yaml:"excludePaths,omitempty" json:"excludePaths,omitempty"`
	IncludeHosts  []string `yaml:"includeHosts,omitempty" json:"includeHosts,omitempty"`
	ExcludeHosts  []string `yaml:"excludeHosts,omitempty" json:"excludeHosts,omitempty"`
	RedactHeaders []string `yaml:"redactHeaders,omitempty" json:"redactHeaders,omitempty"`
	// MaxBodySize is a human-readable size such as "10MB". Empty means no limit.
	MaxBodySize string `yaml:"maxBodySize,omitempty" json:"maxBodySize,omitempty"`

	// ConfigFile is the file the config was read from, if any.
	ConfigFile string `yaml:"-" json:"configFile,omitempty"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys were explicitly present in this source,
	// so that explicit empty or zero values can still override.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Run modes.
const (
	ModePlay   = "play"
	ModeRecord = "record"
)
