package recording

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/getmockd/harproxy/pkg/har"
	"github.com/getmockd/harproxy/pkg/logging"
)

// RedactedValue replaces the value of redacted headers in the archive.
const RedactedValue = "[REDACTED]"

// Appender persists a captured entry.
type Appender interface {
	Append(e har.Entry) error
}

// Options configures a Capturer.
type Options struct {
	// Filter limits which exchanges are captured (nil = all).
	Filter *FilterConfig

	// RedactHeaders names request and response headers whose values are
	// replaced in the archive. The response sent to the client is untouched.
	RedactHeaders []string

	// MaxBodySize skips capture of responses with a larger body (0 = no limit).
	MaxBodySize int64

	// Logger for capture outcomes (nil = no logging).
	Logger *slog.Logger
}

// Capturer records forwarded exchanges into an archive.
//
// Capture never reports failure to its caller: the response has already
// been delivered, so errors are logged and dropped.
type Capturer struct {
	store       Appender
	filter      *FilterConfig
	redact      []string
	maxBodySize int64
	log         *slog.Logger
}

// NewCapturer creates a Capturer that appends to store.
func NewCapturer(store Appender, opts Options) *Capturer {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Capturer{
		store:       store,
		filter:      opts.Filter,
		redact:      opts.RedactHeaders,
		maxBodySize: opts.MaxBodySize,
		log:         log,
	}
}

// Capture builds an entry for ex and appends it to the archive.
func (c *Capturer) Capture(ex *Exchange) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("capture panicked", "error", fmt.Sprint(r))
		}
	}()

	if ex == nil || ex.Request == nil || ex.Response == nil {
		c.log.Error("capture skipped: incomplete exchange")
		return
	}

	method, u := ex.Request.Method, ex.Request.URL
	if !c.filter.ShouldRecord(u.Hostname(), u.Path) {
		c.log.Debug("capture filtered", "method", method, "url", u.String())
		return
	}
	if c.maxBodySize > 0 && int64(len(ex.ResponseBody)) > c.maxBodySize {
		c.log.Warn("capture skipped: response body over limit",
			"method", method,
			"url", u.String(),
			"size", humanize.Bytes(uint64(len(ex.ResponseBody))),
			"limit", humanize.Bytes(uint64(c.maxBodySize)),
		)
		return
	}

	e := NewEntry(ex)
	c.redactHeaders(&e)

	if err := c.store.Append(e); err != nil {
		c.log.Error("failed to store recording", "method", method, "url", u.String(), "error", err)
		return
	}

	c.log.Info("recorded",
		"id", e.ID,
		"method", method,
		"url", e.Request.URL,
		"status", e.Response.Status,
		"size", humanize.Bytes(uint64(e.Response.Content.Size)),
		"duration", ex.Duration(),
	)
}

func (c *Capturer) redactHeaders(e *har.Entry) {
	if len(c.redact) == 0 {
		return
	}
	redactPairs(e.Request.Headers, c.redact)
	redactPairs(e.Response.Headers, c.redact)
}

func redactPairs(pairs []har.NameValue, names []string) {
	for i := range pairs {
		for _, name := range names {
			if strings.EqualFold(pairs[i].Name, name) {
				pairs[i].Value = RedactedValue
				break
			}
		}
	}
}
