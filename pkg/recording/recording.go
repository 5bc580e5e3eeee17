// Package recording turns forwarded HTTP exchanges into archive entries.
package recording

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/getmockd/harproxy/pkg/har"
)

// Exchange is one completed request/response cycle as seen by the proxy.
type Exchange struct {
	// Request is the request sent upstream. Its URL is absolute.
	Request *http.Request
	// RequestBody is the buffered request body.
	RequestBody []byte

	// Response is the upstream response. Its body has already been consumed.
	Response *http.Response
	// ResponseBody is the buffered response body exactly as received.
	ResponseBody []byte

	// Start is when the request was received.
	Start time.Time
	// End is when the response body was fully read.
	End time.Time
}

// Duration returns the elapsed time of the exchange.
func (ex *Exchange) Duration() time.Duration {
	return ex.End.Sub(ex.Start)
}

// NewEntry builds an archive entry from ex.
func NewEntry(ex *Exchange) har.Entry {
	elapsed := har.Milliseconds(ex.Duration())

	return har.Entry{
		ID:              uuid.NewString(),
		StartedDateTime: ex.Start.UTC().Format(har.TimeFormat),
		Time:            elapsed,
		Request:         captureRequest(ex.Request, ex.RequestBody),
		Response:        captureResponse(ex.Response, ex.ResponseBody),
		Timings: har.Timings{
			Blocked: -1,
			DNS:     -1,
			Connect: -1,
			Send:    0,
			Wait:    elapsed,
			Receive: 0,
			SSL:     -1,
		},
	}
}

func captureRequest(req *http.Request, body []byte) har.Request {
	out := har.Request{
		Method:      req.Method,
		URL:         req.URL.String(),
		HTTPVersion: protoOrDefault(req.Proto),
		Headers:     har.FromHeader(req.Header),
		QueryString: har.FromQuery(req.URL.Query()),
		HeadersSize: -1,
		BodySize:    len(body),
	}

	if len(body) > 0 {
		out.PostData = &har.PostData{MimeType: req.Header.Get("Content-Type")}
		if utf8.Valid(body) {
			out.PostData.Text = string(body)
		} else {
			out.PostData.Text = base64.StdEncoding.EncodeToString(body)
			out.PostData.Encoding = har.EncodingBase64
		}
	}
	return out
}

func captureResponse(resp *http.Response, body []byte) har.Response {
	mimeType := resp.Header.Get("Content-Type")

	return har.Response{
		Status:      resp.StatusCode,
		StatusText:  statusText(resp),
		HTTPVersion: protoOrDefault(resp.Proto),
		Headers:     har.FromHeader(resp.Header),
		Content:     captureContent(mimeType, resp.Header.Get("Content-Encoding"), body),
		RedirectURL: resp.Header.Get("Location"),
		HeadersSize: -1,
		BodySize:    len(body),
	}
}

// statusText strips the numeric code from resp.Status ("201 Created" -> "Created").
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text, ok := strings.CutPrefix(resp.Status, code+" "); ok {
		return text
	}
	if resp.Status != "" && resp.Status != code {
		return resp.Status
	}
	return http.StatusText(resp.StatusCode)
}

func protoOrDefault(proto string) string {
	if proto == "" {
		return "HTTP/1.1"
	}
	return proto
}
