// Package archive persists HTTP Archive documents on disk.
//
// The backing file is the only shared state between recording and playback.
// Every operation re-reads it from disk; nothing is cached in memory.
//
// # Consistency
//
// Append rewrites the whole file in place. Appends issued through the same
// Store are serialized, so concurrent captures in one process all land in
// the file. Nothing coordinates separate Store values or separate processes:
// the last complete write wins, and a reader that races a writer may observe
// a truncated document, which Load reports as ErrMalformed.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/getmockd/harproxy/pkg/har"
	"github.com/getmockd/harproxy/pkg/logging"
)

// ErrMalformed is reported when the archive file cannot be parsed as a HAR document.
var ErrMalformed = errors.New("malformed archive")

// DefaultCreator identifies harproxy in archives it creates.
var DefaultCreator = har.Creator{Name: "harproxy", Version: "dev"}

// LoadError describes a failure to read or parse the archive file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return "load archive " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError describes a failure to persist the archive file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return "write archive " + e.Path + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store reads and appends to a single archive file.
type Store struct {
	// Path is the archive file location.
	Path string

	// Creator is written into archives created by Append.
	Creator har.Creator

	// Perm is the file mode used when the archive is created.
	Perm fs.FileMode

	log *slog.Logger
	mu  sync.Mutex
}

// New creates a Store for the archive at path.
func New(path string) *Store {
	return &Store{
		Path:    path,
		Creator: DefaultCreator,
		Perm:    0o644,
		log:     logging.Nop(),
	}
}

// SetLogger sets the logger used for recoverable conditions.
func (s *Store) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	s.log = log
}

func (s *Store) logger() *slog.Logger {
	if s.log == nil {
		return logging.Nop()
	}
	return s.log
}

// Load reads and parses the archive file.
// A missing, unreadable or unparseable file yields a *LoadError.
func (s *Store) Load() (*har.HAR, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, &LoadError{Path: s.Path, Err: err}
	}
	return parse(s.Path, data)
}

func parse(path string, data []byte) (*har.HAR, error) {
	// A document without "log" decodes into the zero value; detect that
	// through a pointer instead of accepting it as an empty archive.
	var doc struct {
		Log *har.Log `json:"log"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}
	if doc.Log == nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: missing log object", ErrMalformed)}
	}
	if doc.Log.Entries == nil {
		doc.Log.Entries = []har.Entry{}
	}
	return &har.HAR{Log: *doc.Log}, nil
}

// Append adds e to the end of the archive and rewrites the file.
//
// A missing or malformed archive is replaced by a new archive holding only e.
// The returned error, if any, is a *WriteError.
func (s *Store) Append(e har.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load()
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger().Debug("archive not found, starting a new one", "path", s.Path)
		default:
			s.logger().Warn("archive unreadable, starting a new one", "path", s.Path, "error", err)
		}
		current = har.New(s.Creator)
	}

	next := har.HAR{Log: current.Log.WithEntry(e)}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return &WriteError{Path: s.Path, Err: err}
	}

	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: s.Path, Err: err}
		}
	}

	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.WriteFile(s.Path, data, perm); err != nil {
		return &WriteError{Path: s.Path, Err: err}
	}

	s.logger().Debug("archive written",
		"path", s.Path,
		"entries", len(next.Log.Entries),
		"size", humanize.Bytes(uint64(len(data))),
	)
	return nil
}
