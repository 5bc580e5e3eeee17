// Package playback answers requests from a recorded archive.
//
// Each request loads the archive from disk, so entries appended by a
// concurrent recorder become visible on the next request. Anything the
// archive cannot answer, including a missing or unreadable archive, is
// passed to the next handler.
package playback

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/getmockd/harproxy/pkg/har"
	"github.com/getmockd/harproxy/pkg/logging"
)

// Loader reads the current archive.
type Loader interface {
	Load() (*har.HAR, error)
}

// Responder serves recorded responses.
type Responder struct {
	store Loader
	log   *slog.Logger
}

// New creates a Responder backed by store.
func New(store Loader, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Responder{store: store, log: logger}
}

// Wrap returns a handler that serves recorded entries and delegates
// everything else to next.
func (rs *Responder) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rs.serve(w, r) {
			next.ServeHTTP(w, r)
		}
	})
}

// serve writes the first matching entry and reports whether it did.
func (rs *Responder) serve(w http.ResponseWriter, r *http.Request) bool {
	path := r.URL.RequestURI()

	doc, err := rs.store.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			rs.log.Debug("no archive to play from", "error", err)
		} else {
			rs.log.Warn("archive unavailable, passing through", "method", r.Method, "path", path, "error", err)
		}
		return false
	}

	entry, ok := har.Find(doc.Log, r.Method, path)
	if !ok {
		rs.log.Debug("no recorded match", "method", r.Method, "path", path)
		return false
	}

	body, err := entry.Response.Content.Bytes()
	if err != nil {
		rs.log.Warn("recorded body is not valid base64", "id", entry.ID, "error", err)
		return false
	}

	if mimeType := entry.Response.Content.MimeType; mimeType != "" {
		w.Header().Set("Content-Type", mimeType)
	}
	w.WriteHeader(entry.Response.Status)
	if _, err := w.Write(body); err != nil {
		rs.log.Debug("client went away during playback", "path", path, "error", err)
	}

	rs.log.Info("played", "id", entry.ID, "method", r.Method, "path", path, "status", entry.Response.Status)
	return true
}
