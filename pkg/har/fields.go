package har

import (
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
)

// FromHeader flattens h into name/value pairs sorted by name.
// Repeated headers produce one pair per value, in their original order.
func FromHeader(h http.Header) []NameValue {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]NameValue, 0, len(names))
	for _, name := range names {
		for _, v := range h[name] {
			pairs = append(pairs, NameValue{Name: name, Value: v})
		}
	}
	return pairs
}

// FromQuery flattens q into name/value pairs sorted by name.
func FromQuery(q url.Values) []NameValue {
	return FromHeader(http.Header(q))
}

// Header rebuilds an http.Header from recorded pairs.
func Header(pairs []NameValue) http.Header {
	h := make(http.Header, len(pairs))
	for _, p := range pairs {
		h.Add(p.Name, p.Value)
	}
	return h
}

// Bytes returns the decoded body held by c.
func (c Content) Bytes() ([]byte, error) {
	if c.Encoding == EncodingBase64 {
		return base64.StdEncoding.DecodeString(c.Text)
	}
	return []byte(c.Text), nil
}
