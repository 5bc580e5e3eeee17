package recording

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/getmockd/harproxy/pkg/har"
)

// captureContent stores the decoded body as text when it is textual UTF-8
// and as base64 otherwise.
func captureContent(mimeType, contentEncoding string, body []byte) har.Content {
	decoded, err := decodeBody(contentEncoding, body)
	if err != nil {
		decoded = body
	}

	c := har.Content{
		Size:     len(decoded),
		MimeType: mimeType,
	}
	// Bytes we could not decode are never valid as text for this mime type.
	if err == nil && isTextual(mimeType) && utf8.Valid(decoded) {
		c.Text = string(decoded)
		return c
	}
	c.Text = base64.StdEncoding.EncodeToString(decoded)
	c.Encoding = har.EncodingBase64
	return c
}

// decodeBody reverses a single Content-Encoding.
func decodeBody(contentEncoding string, body []byte) ([]byte, error) {
	coding := strings.ToLower(strings.TrimSpace(contentEncoding))
	if len(body) == 0 {
		return body, nil
	}

	switch coding {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer func() { _ = zr.Close() }()
		return io.ReadAll(zr)
	case "deflate":
		// "deflate" is zlib-wrapped per RFC 9110, but raw deflate is common.
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer func() { _ = zr.Close() }()
			return io.ReadAll(zr)
		}
		fr := flate.NewReader(bytes.NewReader(body))
		defer func() { _ = fr.Close() }()
		return io.ReadAll(fr)
	case "zstd":
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return zr.DecodeAll(body, nil)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", contentEncoding)
	}
}

// isTextual reports whether a body of this media type may be stored as text.
// An absent Content-Type is decided by the UTF-8 check alone.
func isTextual(mimeType string) bool {
	if mimeType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}

	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	if strings.HasSuffix(mediaType, "+json") || strings.HasSuffix(mediaType, "+xml") {
		return true
	}
	switch mediaType {
	case "application/json",
		"application/xml",
		"application/javascript",
		"application/ecmascript",
		"application/x-www-form-urlencoded",
		"application/graphql",
		"application/yaml",
		"application/x-yaml",
		"application/x-ndjson":
		return true
	}
	return false
}
