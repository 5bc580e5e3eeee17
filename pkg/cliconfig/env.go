package cliconfig

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names
const (
	EnvConfig        = "HARPROXY_CONFIG"
	EnvPort          = "HARPROXY_PORT"
	EnvMode          = "HARPROXY_MODE"
	EnvTargetURL     = "HARPROXY_TARGET_URL"
	EnvHARFile       = "HARPROXY_HAR_FILE"
	EnvPrefix        = "HARPROXY_PREFIX"
	EnvLogLevel      = "HARPROXY_LOG_LEVEL"
	EnvLogFormat     = "HARPROXY_LOG_FORMAT"
	EnvLogFile       = "HARPROXY_LOG_FILE"
	EnvIncludePaths  = "HARPROXY_INCLUDE_PATHS"
	EnvExcludePaths  = "HARPROXY_EXCLUDE_PATHS"
	EnvIncludeHosts  = "HARPROXY_INCLUDE_HOSTS"
	EnvExcludeHosts  = "HARPROXY_EXCLUDE_HOSTS"
	EnvRedactHeaders = "HARPROXY_REDACT_HEADERS"
	EnvMaxBodySize   = "HARPROXY_MAX_BODY_SIZE"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment. List variables
// are comma-separated.
func LoadEnvConfig(cfg *Config) error {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	// HARPROXY_PORT
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Message: EnvPort + " must be a number, got " + strconv.Quote(v), Err: err}
		}
		cfg.Port = port
		cfg.Sources["port"] = SourceEnv
	}

	envString(cfg, EnvMode, "mode", &cfg.Mode)
	envString(cfg, EnvTargetURL, "targetUrl", &cfg.TargetURL)
	envString(cfg, EnvHARFile, "harFile", &cfg.HARFile)
	envString(cfg, EnvPrefix, "prefix", &cfg.Prefix)
	envString(cfg, EnvLogLevel, "logLevel", &cfg.LogLevel)
	envString(cfg, EnvLogFormat, "logFormat", &cfg.LogFormat)
	envString(cfg, EnvLogFile, "logFile", &cfg.LogFile)
	envString(cfg, EnvMaxBodySize, "maxBodySize", &cfg.MaxBodySize)

	envList(cfg, EnvIncludePaths, "includePaths", &cfg.IncludePaths)
	envList(cfg, EnvExcludePaths, "excludePaths", &cfg.ExcludePaths)
	envList(cfg, EnvIncludeHosts, "includeHosts", &cfg.IncludeHosts)
	envList(cfg, EnvExcludeHosts, "excludeHosts", &cfg.ExcludeHosts)
	envList(cfg, EnvRedactHeaders, "redactHeaders", &cfg.RedactHeaders)

	return nil
}

func envString(cfg *Config, name, key string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
		cfg.Sources[key] = SourceEnv
	}
}

func envList(cfg *Config, name, key string, dst *[]string) {
	if v := os.Getenv(name); v != "" {
		*dst = SplitList(v)
		cfg.Sources[key] = SourceEnv
	}
}

// SplitList splits a comma-separated list, trimming blanks and dropping
// empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
