package proxy

import (
	"bytes"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/getmockd/harproxy/pkg/recording"
)

// hopByHopHeaders are removed in both directions (RFC 9110 section 7.6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// handleHTTP forwards r upstream, relays the buffered response and then
// passes the exchange to the recorder.
func (p *Proxy) handleHTTP(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var reqBody []byte
	if r.Body != nil {
		var err error
		reqBody, err = io.ReadAll(r.Body)
		if err != nil {
			p.log.Warn("error reading request body", "method", r.Method, "path", r.URL.Path, "error", err)
			http.Error(w, "Error reading request", http.StatusBadGateway)
			return
		}
		_ = r.Body.Close()
	}

	outReq, err := p.outgoingRequest(r, reqBody)
	if err != nil {
		p.log.Error("error building upstream request", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "Error forwarding request", http.StatusBadGateway)
		return
	}

	p.log.Debug("forwarding", "method", outReq.Method, "url", outReq.URL.String())

	resp, err := p.client.Do(outReq)
	if err != nil {
		p.log.Error("error forwarding request", "method", outReq.Method, "url", outReq.URL.String(), "error", err)
		http.Error(w, "Error forwarding request: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	// The whole body is needed for the archive entry.
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.log.Error("error reading upstream response", "method", outReq.Method, "url", outReq.URL.String(), "error", err)
		http.Error(w, "Error reading response", http.StatusBadGateway)
		return
	}
	endTime := time.Now()

	p.relay(w, r, resp, respBody)

	if p.recorder != nil {
		p.recorder.Capture(&recording.Exchange{
			Request:      outReq,
			RequestBody:  reqBody,
			Response:     resp,
			ResponseBody: respBody,
			Start:        startTime,
			End:          endTime,
		})
	}
}

// relay writes the upstream response to the client unchanged apart from
// hop-by-hop headers, then flushes it so capture never holds it back.
func (p *Proxy) relay(w http.ResponseWriter, r *http.Request, resp *http.Response, body []byte) {
	h := w.Header()
	copyHeaders(h, resp.Header)
	removeHopByHopHeaders(h)
	if bodyAllowed(r.Method, resp.StatusCode) {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(body); err != nil {
		p.log.Debug("client went away during relay", "path", r.URL.Path, "error", err)
		return
	}
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		p.log.Debug("flush failed", "path", r.URL.Path, "error", err)
	}
}

// outgoingRequest rebuilds r against the target URL.
func (p *Proxy) outgoingRequest(r *http.Request, body []byte) (*http.Request, error) {
	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, p.targetURL(r.URL).String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	copyHeaders(outReq.Header, r.Header)
	removeHopByHopHeaders(outReq.Header)
	if len(body) == 0 && r.ContentLength <= 0 {
		outReq.Body = http.NoBody
		outReq.ContentLength = 0
	}

	// Change origin: the upstream sees its own host.
	outReq.Host = p.target.Host

	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := r.Header.Values("X-Forwarded-For"); len(prior) > 0 {
			clientIP = strings.Join(prior, ", ") + ", " + clientIP
		}
		outReq.Header.Set("X-Forwarded-For", clientIP)
	}
	outReq.Header.Set("X-Forwarded-Host", r.Host)
	if r.TLS != nil {
		outReq.Header.Set("X-Forwarded-Proto", "https")
	} else {
		outReq.Header.Set("X-Forwarded-Proto", "http")
	}

	return outReq, nil
}

// targetURL joins the inbound path and query onto the target base URL.
func (p *Proxy) targetURL(in *url.URL) *url.URL {
	u := *p.target
	u.Path, u.RawPath = joinURLPath(p.target, in)
	switch {
	case p.target.RawQuery == "":
		u.RawQuery = in.RawQuery
	case in.RawQuery == "":
		u.RawQuery = p.target.RawQuery
	default:
		u.RawQuery = p.target.RawQuery + "&" + in.RawQuery
	}
	u.Fragment = ""
	return &u
}

func joinURLPath(a, b *url.URL) (path, rawpath string) {
	if a.RawPath == "" && b.RawPath == "" {
		return singleJoiningSlash(a.Path, b.Path), ""
	}
	apath := a.EscapedPath()
	bpath := b.EscapedPath()

	aslash := strings.HasSuffix(apath, "/")
	bslash := strings.HasPrefix(bpath, "/")

	switch {
	case aslash && bslash:
		return a.Path + b.Path[1:], apath + bpath[1:]
	case !aslash && !bslash:
		return a.Path + "/" + b.Path, apath + "/" + bpath
	}
	return a.Path + b.Path, apath + bpath
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}

// copyHeaders copies headers from src to dst.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// removeHopByHopHeaders removes headers that apply to a single connection,
// including any header named in the Connection header.
func removeHopByHopHeaders(h http.Header) {
	for _, field := range h.Values("Connection") {
		for _, token := range strings.Split(field, ",") {
			token = strings.TrimSpace(token)
			if token != "" && httpguts.ValidHeaderFieldName(token) {
				h.Del(token)
			}
		}
	}
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}

// bodyAllowed reports whether a response to method with status carries a body.
func bodyAllowed(method string, status int) bool {
	switch {
	case method == http.MethodHead:
		return false
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
