package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/harproxy/pkg/archive"
	"github.com/getmockd/harproxy/pkg/cli/internal/output"
	"github.com/getmockd/harproxy/pkg/cliconfig"
	"github.com/getmockd/harproxy/pkg/har"
	"github.com/getmockd/harproxy/pkg/logging"
	"github.com/getmockd/harproxy/pkg/playback"
	"github.com/getmockd/harproxy/pkg/proxy"
	"github.com/getmockd/harproxy/pkg/recording"
	"github.com/getmockd/harproxy/pkg/server"
)

// serveFlags holds the root command's flag values.
type serveFlags struct {
	configPath    string
	port          int
	targetURL     string
	harFile       string
	mode          string
	prefix        string
	logLevel      string
	logFormat     string
	logFile       string
	includePaths  []string
	excludePaths  []string
	includeHosts  []string
	excludeHosts  []string
	redactHeaders []string
	maxBodySize   string
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"port":           "port",
	"target-url":     "targetUrl",
	"har-file":       "harFile",
	"mode":           "mode",
	"prefix":         "prefix",
	"log-level":      "logLevel",
	"log-format":     "logFormat",
	"log-file":       "logFile",
	"include-paths":  "includePaths",
	"exclude-paths":  "excludePaths",
	"include-hosts":  "includeHosts",
	"exclude-hosts":  "excludeHosts",
	"redact-headers": "redactHeaders",
	"max-body-size":  "maxBodySize",
}

func (f *serveFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "Path to a YAML config file (default: .harproxyrc.yaml if present)")
	fl.IntVarP(&f.port, "port", "p", cliconfig.DefaultPort, "Port to listen on")
	fl.StringVarP(&f.targetURL, "target-url", "t", "", "Upstream base URL (required in record mode)")
	fl.StringVarP(&f.harFile, "har-file", "f", "", "HAR archive to record to or play from (default: recording-<timestamp>.har)")
	fl.StringVarP(&f.mode, "mode", "m", cliconfig.DefaultMode, "Run mode: play or record")
	fl.StringVar(&f.prefix, "prefix", "", "Path prefix under which recordings are served in play mode")
	fl.StringVar(&f.logLevel, "log-level", cliconfig.DefaultLogLevel, "Log level: debug, info, warn, error")
	fl.StringVar(&f.logFormat, "log-format", cliconfig.DefaultLogFormat, "Console log format: text or json")
	fl.StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this file")
	fl.StringSliceVar(&f.includePaths, "include-paths", nil, "Only record paths matching these globs")
	fl.StringSliceVar(&f.excludePaths, "exclude-paths", nil, "Never record paths matching these globs")
	fl.StringSliceVar(&f.includeHosts, "include-hosts", nil, "Only record these upstream hosts (globs)")
	fl.StringSliceVar(&f.excludeHosts, "exclude-hosts", nil, "Never record these upstream hosts (globs)")
	fl.StringSliceVar(&f.redactHeaders, "redact-headers", nil, "Header names whose values are masked in recordings")
	fl.StringVar(&f.maxBodySize, "max-body-size", "", "Skip recording responses larger than this, e.g. 10MB (default: no limit)")
}

// config returns the flag layer. Only flags set on the command line are
// marked, so defaults never mask the file or environment.
func (f *serveFlags) config(cmd *cobra.Command) *cliconfig.Config {
	cfg := &cliconfig.Config{
		Port:          f.port,
		TargetURL:     f.targetURL,
		HARFile:       f.harFile,
		Mode:          f.mode,
		Prefix:        f.prefix,
		LogLevel:      f.logLevel,
		LogFormat:     f.logFormat,
		LogFile:       f.logFile,
		IncludePaths:  f.includePaths,
		ExcludePaths:  f.excludePaths,
		IncludeHosts:  f.includeHosts,
		ExcludeHosts:  f.excludeHosts,
		RedactHeaders: f.redactHeaders,
		MaxBodySize:   f.maxBodySize,
		SetFields:     make(map[string]bool, len(flagKeys)),
	}
	for name, key := range flagKeys {
		cfg.SetFields[key] = cmd.Flags().Changed(name)
	}
	return cfg
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := cliconfig.LoadAll(flags.configPath)
	if err != nil {
		return err
	}
	cliconfig.MergeConfig(cfg, flags.config(cmd), cliconfig.SourceFlag)
	if err := cfg.Validate(); err != nil {
		return err
	}

	warnings(cmd.ErrOrStderr(), cfg)

	logger, closer, err := logging.Open(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: cmd.ErrOrStderr(),
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("harproxy started",
		"mode", cfg.Mode,
		"addr", srv.Addr(),
		"har_file", cfg.HARFile,
		"target_url", cfg.TargetURL,
		"config_file", cfg.ConfigFile,
	)
	if _, port, err := net.SplitHostPort(srv.Addr()); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Proxy server listening at http://localhost:%s\n", port)
	}

	return srv.Run(ctx)
}

// warnings reports settings that are valid but probably not what was meant.
func warnings(w io.Writer, cfg *cliconfig.Config) {
	switch cfg.Mode {
	case cliconfig.ModePlay:
		if cfg.TargetURL != "" {
			output.Warn(w, "--target-url is ignored in play mode")
		}
		if _, err := os.Stat(cfg.HARFile); errors.Is(err, fs.ErrNotExist) {
			output.Warn(w, "%s does not exist; every request will get a 404", cfg.HARFile)
		}
	case cliconfig.ModeRecord:
		if cfg.Prefix != "" {
			output.Warn(w, "--prefix is ignored in record mode")
		}
	}
}

// newServer wires the archive, playback or recording pipeline and the HTTP
// front for a validated config. The listener is open when it returns.
func newServer(cfg *cliconfig.Config, logger *slog.Logger) (*server.Server, error) {
	store := archive.New(cfg.HARFile)
	store.Creator = har.Creator{Name: appName, Version: buildVersion().Version}
	store.SetLogger(logger)

	srvCfg := server.Config{
		Addr:   fmt.Sprintf(":%d", cfg.Port),
		Mode:   server.Mode(cfg.Mode),
		Prefix: cfg.Prefix,
		Info: server.Info{
			App:         appName,
			Version:     buildVersion().Version,
			Description: appDescription,
		},
		Logger: logger,
	}

	switch cfg.Mode {
	case cliconfig.ModePlay:
		srvCfg.Playback = playback.New(store, logger)
	case cliconfig.ModeRecord:
		target, err := cfg.Target()
		if err != nil {
			return nil, err
		}
		maxBody, err := cfg.MaxBodyBytes()
		if err != nil {
			return nil, err
		}
		capturer := recording.NewCapturer(store, recording.Options{
			Filter:        cfg.Filter(),
			RedactHeaders: cfg.RedactHeaders,
			MaxBodySize:   maxBody,
			Logger:        logger,
		})
		p, err := proxy.New(proxy.Options{Target: target, Recorder: capturer, Logger: logger})
		if err != nil {
			return nil, err
		}
		srvCfg.Proxy = p
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	return srv, nil
}
