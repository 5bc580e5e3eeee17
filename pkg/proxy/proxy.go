// Package proxy forwards requests to a fixed upstream and hands each
// completed exchange to a recorder.
package proxy

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/getmockd/harproxy/pkg/logging"
	"github.com/getmockd/harproxy/pkg/recording"
)

// DefaultTimeout bounds a single upstream round trip.
const DefaultTimeout = 60 * time.Second

// Recorder receives every exchange after its response has been delivered.
type Recorder interface {
	Capture(ex *recording.Exchange)
}

// Options configures proxy behavior.
type Options struct {
	// Target is the upstream base URL. Required.
	Target *url.URL
	// Recorder captures exchanges (nil = forward only).
	Recorder Recorder
	// Client performs upstream requests. Defaults to NewClient(DefaultTimeout).
	Client *http.Client
	// Logger for traffic logging (nil = no logging).
	Logger *slog.Logger
}

// Proxy is a reverse proxy to a single upstream.
type Proxy struct {
	target   *url.URL
	recorder Recorder
	client   *http.Client
	log      *slog.Logger
}

// New creates a Proxy with the given options.
func New(opts Options) (*Proxy, error) {
	if opts.Target == nil || opts.Target.Scheme == "" || opts.Target.Host == "" {
		return nil, errors.New("proxy target must be an absolute URL")
	}

	client := opts.Client
	if client == nil {
		client = NewClient(DefaultTimeout)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Proxy{
		target:   opts.Target,
		recorder: opts.Recorder,
		client:   client,
		log:      log,
	}, nil
}

// NewClient returns a client that hands back upstream responses untouched:
// redirects are not followed and compressed bodies are not decoded.
func NewClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Target returns the upstream base URL.
func (p *Proxy) Target() *url.URL {
	return p.target
}

// ServeHTTP implements http.Handler for the proxy.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handleHTTP(w, r)
}
