// Package server is the HTTP front: it routes traffic to the playback
// responder or the recording proxy depending on the run mode.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/harproxy/pkg/httputil"
	"github.com/getmockd/harproxy/pkg/logging"
)

// VersionPath serves build information in every mode.
const VersionPath = "/harproxyserver/version"

// ShutdownTimeout bounds the drain of in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Mode selects what the server does with traffic.
type Mode string

// Run modes.
const (
	ModePlay   Mode = "play"
	ModeRecord Mode = "record"
)

// Info is returned by the version endpoint.
type Info struct {
	App         string `json:"app"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Wrapper serves what it can and hands the rest to next.
type Wrapper interface {
	Wrap(next http.Handler) http.Handler
}

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string
	Mode Mode
	// Prefix mounts playback under a path prefix. Ignored in record mode.
	Prefix string
	Info   Info

	// Playback is required in play mode.
	Playback Wrapper
	// Proxy is required in record mode.
	Proxy http.Handler

	Logger *slog.Logger
}

// Server owns the listener and the HTTP server.
type Server struct {
	listener net.Listener
	server   *http.Server
	log      *slog.Logger
}

// New builds the router and opens the listener.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	return &Server{
		listener: ln,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 30 * time.Second,
		},
		log: log,
	}, nil
}

// NewHandler returns the router for cfg.
func NewHandler(cfg Config) (http.Handler, error) {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	var h http.Handler
	switch cfg.Mode {
	case ModePlay:
		if cfg.Playback == nil {
			return nil, errors.New("play mode requires a playback responder")
		}
		h = mount(normalizePrefix(cfg.Prefix), cfg.Playback.Wrap(http.HandlerFunc(noRecording)))
	case ModeRecord:
		if cfg.Proxy == nil {
			return nil, errors.New("record mode requires a proxy")
		}
		h = cfg.Proxy
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// Proxied responses belong to the upstream, so only play mode echoes the id.
	r.Use(requestLogger(log, cfg.Mode == ModePlay))

	r.Get(VersionPath, func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, cfg.Info)
	})

	// chi only routes the methods it knows; anything else, including
	// extension and lowercase tokens, lands on MethodNotAllowed.
	r.Handle("/*", h)
	r.MethodNotAllowed(h.ServeHTTP)

	return r, nil
}

// mount serves h under prefix with the prefix stripped. Paths outside the
// prefix get the same 404 as an unmatched recording.
func mount(prefix string, h http.Handler) http.Handler {
	if prefix == "" {
		return h
	}
	stripped := http.StripPrefix(prefix, h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			stripped.ServeHTTP(w, r)
			return
		}
		noRecording(w, r)
	})
}

// noRecording ends the playback chain.
func noRecording(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, http.StatusNotFound, "no_recording",
		fmt.Sprintf("no recorded response for %s %s", r.Method, r.URL.RequestURI()))
}

// normalizePrefix turns "api/", "/api" and "/api/" into "/api" and "/" into "".
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down", "addr", s.Addr())
		cctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(cctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.log.Info("listening", "addr", s.Addr())
		err := s.server.Serve(s.listener)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}
