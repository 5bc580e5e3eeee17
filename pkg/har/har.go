// Package har defines the HTTP Archive document recorded and replayed by harproxy.
package har

import "time"

// Version is the HAR format version written to new archives.
const Version = "1.2"

// TimeFormat is the layout used for startedDateTime.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// EncodingBase64 marks content whose text is base64-encoded.
const EncodingBase64 = "base64"

// HAR represents an HTTP Archive file.
type HAR struct {
	Log Log `json:"log"`
}

// Log contains the archive metadata and its entries in capture order.
type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Entries []Entry `json:"entries"`
}

// Creator identifies the tool that wrote the archive.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry represents a single recorded request/response pair.
type Entry struct {
	ID              string   `json:"_id,omitempty"`
	StartedDateTime string   `json:"startedDateTime"`
	Time            float64  `json:"time"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
	Timings         Timings  `json:"timings"`
}

// Request represents the recorded request.
type Request struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	QueryString []NameValue `json:"queryString"`
	PostData    *PostData   `json:"postData,omitempty"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// Response represents the recorded response.
type Response struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	Content     Content     `json:"content"`
	RedirectURL string      `json:"redirectURL"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

// NameValue is a header or query string pair.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PostData represents a request body. Encoding is a custom field set to
// EncodingBase64 when the body was not valid UTF-8.
type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"_encoding,omitempty"`
}

// Content represents a response body.
type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"`
}

// Timings represents the phases of an exchange in milliseconds.
// Phases that were not measured are -1.
type Timings struct {
	Blocked float64 `json:"blocked"`
	DNS     float64 `json:"dns"`
	Connect float64 `json:"connect"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
	SSL     float64 `json:"ssl"`
}

// New returns an empty archive written by the given creator.
func New(creator Creator) *HAR {
	return &HAR{
		Log: Log{
			Version: Version,
			Creator: creator,
			Entries: []Entry{},
		},
	}
}

// WithEntry returns a copy of the log with e appended.
// The receiver's entry slice is never modified.
func (l Log) WithEntry(e Entry) Log {
	entries := make([]Entry, len(l.Entries), len(l.Entries)+1)
	copy(entries, l.Entries)
	l.Entries = append(entries, e)
	return l
}

// Started parses StartedDateTime.
func (e Entry) Started() (time.Time, error) {
	return time.Parse(TimeFormat, e.StartedDateTime)
}

// Milliseconds converts d to the fractional milliseconds HAR uses.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
