package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/harproxy/pkg/har"
)

func sampleEntry(method, url string, status int, text string) har.Entry {
	return har.Entry{
		StartedDateTime: "2026-10-16T09:30:00.000Z",
		Time:            12.5,
		Request: har.Request{
			Method:      method,
			URL:         url,
			HTTPVersion: "HTTP/1.1",
			Headers:     []har.NameValue{{Name: "Accept", Value: "application/json"}},
			QueryString: []har.NameValue{},
		},
		Response: har.Response{
			Status:      status,
			StatusText:  "OK",
			HTTPVersion: "HTTP/1.1",
			Headers:     []har.NameValue{{Name: "Content-Type", Value: "application/json"}},
			Content:     har.Content{Size: len(text), MimeType: "application/json", Text: text},
		},
		Timings: har.Timings{Blocked: -1, DNS: -1, Connect: -1, Send: 0, Wait: 12.5, Receive: 0, SSL: -1},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_MissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.har"))

	doc, err := s.Load()

	assert.Nil(t, doc)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, s.Path, loadErr.Path)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is not a har file"},
		{"empty file", ""},
		{"truncated document", `{"log":{"version":"1.2","entries":[{"request":`},
		{"missing log", `{"entries":[]}`},
		{"null log", `{"log":null}`},
		{"wrong entries type", `{"log":{"entries":"nope"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.har")
			writeFile(t, path, tt.content)

			doc, err := New(path).Load()

			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrMalformed)
			var loadErr *LoadError
			assert.ErrorAs(t, err, &loadErr)
		})
	}
}

func TestLoad_EmptyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.har")
	writeFile(t, path, `{"log":{"version":"1.2","creator":{"name":"x","version":"1"}}}`)

	doc, err := New(path).Load()

	require.NoError(t, err)
	assert.Equal(t, "1.2", doc.Log.Version)
	assert.NotNil(t, doc.Log.Entries)
	assert.Empty(t, doc.Log.Entries)
}

func TestAppend_CreatesArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "new.har")
	s := New(path)
	s.Creator = har.Creator{Name: "harproxy", Version: "1.2.3"}

	e := sampleEntry("POST", "http://upstream.test/items", 201, `{"id":1}`)
	require.NoError(t, s.Append(e))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, har.Version, doc.Log.Version)
	assert.Equal(t, s.Creator, doc.Log.Creator)
	require.Len(t, doc.Log.Entries, 1)
	if diff := cmp.Diff(e, doc.Log.Entries[0]); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_PreservesExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.har")
	original := har.HAR{Log: har.Log{
		Version: "1.2",
		Creator: har.Creator{Name: "browser", Version: "99"},
		Entries: []har.Entry{
			sampleEntry("GET", "http://upstream.test/a", 200, "a"),
			sampleEntry("GET", "http://upstream.test/b", 200, "b"),
		},
	}}
	data, err := json.Marshal(original)
	require.NoError(t, err)
	writeFile(t, path, string(data))

	s := New(path)
	added := sampleEntry("DELETE", "http://upstream.test/a", 204, "")
	require.NoError(t, s.Append(added))

	doc, err := s.Load()
	require.NoError(t, err)

	want := original.Log.WithEntry(added)
	if diff := cmp.Diff(want, doc.Log); diff != "" {
		t.Errorf("archive mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_ReplacesMalformedArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.har")
	writeFile(t, path, `{"log":{"entries":[`)

	s := New(path)
	require.NoError(t, s.Append(sampleEntry("GET", "http://upstream.test/x", 200, "x")))

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Log.Entries, 1)
	assert.Equal(t, "x", doc.Log.Entries[0].Response.Content.Text)
}

func TestAppend_WriteFailure(t *testing.T) {
	// A directory cannot be read or written as a file.
	dir := t.TempDir()

	err := New(dir).Append(sampleEntry("GET", "http://upstream.test/x", 200, "x"))

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, dir, writeErr.Path)
}

func TestAppend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.har")
	s := New(path)

	entries := []har.Entry{
		sampleEntry("GET", "http://upstream.test/items?page=1", 200, `[1]`),
		sampleEntry("POST", "http://upstream.test/items", 201, `{"id":1}`),
	}
	entries[1].Request.PostData = &har.PostData{MimeType: "application/json", Text: `{"name":"x"}`}
	entries[1].Response.Content.Encoding = har.EncodingBase64
	entries[1].ID = "5f0c6c5e-8d1e-4c59-9d43-4d4c3f6a2a11"

	for _, e := range entries {
		require.NoError(t, s.Append(e))
	}

	doc, err := s.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(entries, doc.Log.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	// Saving the loaded value again must reproduce the same document.
	again := New(filepath.Join(t.TempDir(), "copy.har"))
	for _, e := range doc.Log.Entries {
		require.NoError(t, again.Append(e))
	}
	reloaded, err := again.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(doc.Log.Entries, reloaded.Log.Entries); diff != "" {
		t.Errorf("reloaded mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_ConcurrentAppendsAllLand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.har")
	s := New(path)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := fmt.Sprintf("http://upstream.test/items/%d", i)
			assert.NoError(t, s.Append(sampleEntry("GET", url, 200, url)))
		}(i)
	}
	wg.Wait()

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc.Log.Entries, n)

	seen := make(map[string]bool, n)
	for _, e := range doc.Log.Entries {
		seen[e.Request.URL] = true
	}
	for i := 0; i < n; i++ {
		assert.True(t, seen[fmt.Sprintf("http://upstream.test/items/%d", i)], "entry %d missing", i)
	}
}

func TestStore_ZeroValue(t *testing.T) {
	s := &Store{Path: filepath.Join(t.TempDir(), "zero.har")}

	require.NoError(t, s.Append(sampleEntry("GET", "http://upstream.test/z", 200, "z")))

	info, err := os.Stat(s.Path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o644), info.Mode().Perm()&0o644)
}
