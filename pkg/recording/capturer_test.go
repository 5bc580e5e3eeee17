package recording

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/harproxy/pkg/archive"
	"github.com/getmockd/harproxy/pkg/har"
	"github.com/getmockd/harproxy/pkg/logging"
)

type memAppender struct {
	mu      sync.Mutex
	entries []har.Entry
}

func (m *memAppender) Append(e har.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type failingAppender struct{ err error }

func (f failingAppender) Append(har.Entry) error { return f.err }

type panickingAppender struct{}

func (panickingAppender) Append(har.Entry) error { panic("disk on fire") }

func TestCapture_AppendsEntryAndKeepsPriorEntries(t *testing.T) {
	store := archive.New(filepath.Join(t.TempDir(), "rec.har"))
	prior := NewEntry(newExchange(t, "GET", "http://upstream.test/items", "", 200, "application/json", `[]`))
	require.NoError(t, store.Append(prior))

	c := NewCapturer(store, Options{})
	c.Capture(newExchange(t, "POST", "http://upstream.test/items", `{"name":"x"}`, 201, "application/json", `{"id":1}`))

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc.Log.Entries, 2)
	assert.Equal(t, prior, doc.Log.Entries[0])

	got := doc.Log.Entries[1]
	assert.Equal(t, "POST", got.Request.Method)
	assert.Equal(t, 201, got.Response.Status)
	assert.Equal(t, "application/json", got.Response.Content.MimeType)
	assert.Equal(t, `{"id":1}`, got.Response.Content.Text)
}

func TestCapture_AppendFailureIsContained(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &logs})

	c := NewCapturer(failingAppender{err: errors.New("no space left on device")}, Options{Logger: logger})

	assert.NotPanics(t, func() {
		c.Capture(newExchange(t, "GET", "http://upstream.test/a", "", 200, "text/plain", "a"))
	})
	assert.Contains(t, logs.String(), "failed to store recording")
	assert.Contains(t, logs.String(), "no space left on device")
}

func TestCapture_PanicIsContained(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &logs})

	c := NewCapturer(panickingAppender{}, Options{Logger: logger})

	assert.NotPanics(t, func() {
		c.Capture(newExchange(t, "GET", "http://upstream.test/a", "", 200, "text/plain", "a"))
	})
	assert.Contains(t, logs.String(), "capture panicked")
}

func TestCapture_IncompleteExchange(t *testing.T) {
	mem := &memAppender{}
	c := NewCapturer(mem, Options{})

	assert.NotPanics(t, func() {
		c.Capture(nil)
		c.Capture(&Exchange{})
	})
	assert.Empty(t, mem.entries)
}

func TestCapture_Filter(t *testing.T) {
	mem := &memAppender{}
	c := NewCapturer(mem, Options{Filter: &FilterConfig{ExcludePaths: []string{"/health"}}})

	c.Capture(newExchange(t, "GET", "http://upstream.test/health", "", 200, "text/plain", "ok"))
	c.Capture(newExchange(t, "GET", "http://upstream.test/items", "", 200, "application/json", "[]"))

	require.Len(t, mem.entries, 1)
	assert.Equal(t, "http://upstream.test/items", mem.entries[0].Request.URL)
}

func TestCapture_MaxBodySize(t *testing.T) {
	mem := &memAppender{}
	c := NewCapturer(mem, Options{MaxBodySize: 4})

	c.Capture(newExchange(t, "GET", "http://upstream.test/big", "", 200, "text/plain", "too large"))
	c.Capture(newExchange(t, "GET", "http://upstream.test/small", "", 200, "text/plain", "tiny"))

	require.Len(t, mem.entries, 1)
	assert.Equal(t, "tiny", mem.entries[0].Response.Content.Text)
}

func TestCapture_RedactHeaders(t *testing.T) {
	mem := &memAppender{}
	c := NewCapturer(mem, Options{RedactHeaders: []string{"authorization", "Set-Cookie"}})

	ex := newExchange(t, "GET", "http://upstream.test/me", "", 200, "application/json", `{}`)
	ex.Request.Header.Set("Authorization", "Bearer secret")
	ex.Request.Header.Set("Accept", "application/json")
	ex.Response.Header.Set("Set-Cookie", "session=abc")

	c.Capture(ex)

	require.Len(t, mem.entries, 1)
	e := mem.entries[0]
	assert.Contains(t, e.Request.Headers, har.NameValue{Name: "Authorization", Value: RedactedValue})
	assert.Contains(t, e.Request.Headers, har.NameValue{Name: "Accept", Value: "application/json"})
	assert.Contains(t, e.Response.Headers, har.NameValue{Name: "Set-Cookie", Value: RedactedValue})

	// The live exchange is not modified.
	assert.Equal(t, "Bearer secret", ex.Request.Header.Get("Authorization"))
	assert.Equal(t, "session=abc", ex.Response.Header.Get("Set-Cookie"))
}

func TestCapture_ConcurrentCapturesAllLand(t *testing.T) {
	store := archive.New(filepath.Join(t.TempDir(), "concurrent.har"))
	c := NewCapturer(store, Options{})

	var wg sync.WaitGroup
	for _, path := range []string{"/a", "/b"} {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			c.Capture(newExchange(t, "GET", "http://upstream.test"+path, "", 200, "text/plain", path))
		}(path)
	}
	wg.Wait()

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc.Log.Entries, 2)

	var texts []string
	for _, e := range doc.Log.Entries {
		texts = append(texts, e.Response.Content.Text)
	}
	assert.ElementsMatch(t, []string{"/a", "/b"}, texts)
}
