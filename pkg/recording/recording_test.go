package recording

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/harproxy/pkg/har"
)

func newExchange(t *testing.T, method, url, reqBody string, status int, contentType, respBody string) *Exchange {
	t.Helper()

	req := httptest.NewRequest(method, url, strings.NewReader(reqBody))
	if reqBody != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp := &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:      "HTTP/1.1",
		Header:     http.Header{},
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}

	start := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	return &Exchange{
		Request:      req,
		RequestBody:  []byte(reqBody),
		Response:     resp,
		ResponseBody: []byte(respBody),
		Start:        start,
		End:          start.Add(42 * time.Millisecond),
	}
}

func TestNewEntry_PostJSON(t *testing.T) {
	ex := newExchange(t, "POST", "http://upstream.test/items?dry=1", `{"name":"widget"}`, 201, "application/json", `{"id":1}`)

	e := NewEntry(ex)

	_, err := uuid.Parse(e.ID)
	assert.NoError(t, err)
	assert.Equal(t, "2026-10-16T09:30:00.000Z", e.StartedDateTime)
	assert.InDelta(t, 42.0, e.Time, 0.001)
	assert.InDelta(t, 42.0, e.Timings.Wait, 0.001)
	assert.Equal(t, -1.0, e.Timings.DNS)

	assert.Equal(t, "POST", e.Request.Method)
	assert.Equal(t, "http://upstream.test/items?dry=1", e.Request.URL)
	assert.Equal(t, "HTTP/1.1", e.Request.HTTPVersion)
	assert.Equal(t, []har.NameValue{{Name: "dry", Value: "1"}}, e.Request.QueryString)
	assert.Contains(t, e.Request.Headers, har.NameValue{Name: "Content-Type", Value: "application/json"})
	require.NotNil(t, e.Request.PostData)
	assert.Equal(t, "application/json", e.Request.PostData.MimeType)
	assert.Equal(t, `{"name":"widget"}`, e.Request.PostData.Text)
	assert.Empty(t, e.Request.PostData.Encoding)
	assert.Equal(t, len(`{"name":"widget"}`), e.Request.BodySize)

	assert.Equal(t, 201, e.Response.Status)
	assert.Equal(t, "Created", e.Response.StatusText)
	assert.Equal(t, "application/json", e.Response.Content.MimeType)
	assert.Equal(t, `{"id":1}`, e.Response.Content.Text)
	assert.Equal(t, 8, e.Response.Content.Size)
	assert.Empty(t, e.Response.Content.Encoding)
}

func TestNewEntry_NoRequestBody(t *testing.T) {
	ex := newExchange(t, "GET", "http://upstream.test/items", "", 200, "text/plain; charset=utf-8", "hello")

	e := NewEntry(ex)

	assert.Nil(t, e.Request.PostData)
	assert.Equal(t, 0, e.Request.BodySize)
	assert.Equal(t, []har.NameValue{}, e.Request.QueryString)
	assert.Equal(t, "text/plain; charset=utf-8", e.Response.Content.MimeType)
	assert.Equal(t, "hello", e.Response.Content.Text)
}

func TestNewEntry_BinaryRequestBody(t *testing.T) {
	ex := newExchange(t, "PUT", "http://upstream.test/blob", "", 204, "", "")
	ex.RequestBody = []byte{0xff, 0xfe, 0x00}

	e := NewEntry(ex)

	require.NotNil(t, e.Request.PostData)
	assert.Equal(t, har.EncodingBase64, e.Request.PostData.Encoding)
	assert.Equal(t, "//4A", e.Request.PostData.Text)
}

func TestNewEntry_RedirectLocation(t *testing.T) {
	ex := newExchange(t, "GET", "http://upstream.test/old", "", 302, "", "")
	ex.Response.Header.Set("Location", "/new")

	e := NewEntry(ex)

	assert.Equal(t, "/new", e.Response.RedirectURL)
	assert.Equal(t, "Found", e.Response.StatusText)
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		status string
		want   string
	}{
		{"standard", 201, "201 Created", "Created"},
		{"custom reason", 200, "200 All Good", "All Good"},
		{"empty status", 404, "", "Not Found"},
		{"code only", 500, "500", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusText(&http.Response{StatusCode: tt.code, Status: tt.status}))
		})
	}
}
