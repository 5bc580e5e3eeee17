package cliconfig

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LocalConfigFileNames are the names to search for local config (in order).
var LocalConfigFileNames = []string{".harproxyrc.yaml", ".harproxyrc.yml"}

// FindLocalConfig searches for .harproxyrc.yaml or .harproxyrc.yml in the current directory.
// Returns empty string if not found.
func FindLocalConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, name := range LocalConfigFileNames {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// LoadConfigFile loads a Config from a YAML file.
// Unknown keys are rejected so that typos do not pass silently.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: err.Error(), Err: err}
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		cerr := &ConfigError{Path: path, Message: err.Error(), Err: err}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			cerr.Line, _ = strconv.Atoi(m[1])
		}
		return nil, cerr
	}

	// Record which keys were present so explicit empty values still apply.
	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err == nil {
		cfg.SetFields = make(map[string]bool, len(keys))
		for k := range keys {
			cfg.SetFields[k] = true
		}
	}

	cfg.ConfigFile = path
	cfg.Sources = make(map[string]string)
	return &cfg, nil
}

// ConfigError represents a configuration error. File errors carry the path
// and, when known, the line; validation errors carry only a message.
type ConfigError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Path == "":
		return e.Message
	case e.Line > 0 && e.Column > 0:
		return e.Path + " (line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column) + "): " + e.Message
	case e.Line > 0:
		return e.Path + " (line " + strconv.Itoa(e.Line) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadAll loads configuration from defaults, the config file and the
// environment, in increasing precedence. Flags are merged by the caller.
//
// path names an explicit config file; when empty, HARPROXY_CONFIG and then
// the local .harproxyrc.yaml are tried. An explicit file must exist.
func LoadAll(path string) (*Config, error) {
	// Start with defaults
	cfg := NewDefault()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		local, err := FindLocalConfig()
		if err != nil {
			return nil, err
		}
		path = local
	}

	if path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		MergeConfig(cfg, fileCfg, SourceFile)
		cfg.ConfigFile = path
	}

	// Load environment variables
	if err := LoadEnvConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
