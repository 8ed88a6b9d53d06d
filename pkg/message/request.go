// Package message converts HTTP messages into plain, storable values and back.
//
// A Request is the snapshot of an outbound request used for cache key
// derivation. A Response is the stored form of an origin response: status,
// protocol version, headers and a UTF-8 body, encoded as JSON.
//
// Headers are flattened to a single value per name: the first one seen, or
// all field lines joined with ", " for list headers such as Vary.
package message

import (
	"net/http"
	"strings"
)

// Request is an immutable snapshot of an HTTP request.
type Request struct {
	Method  string            `json:"method"`
	Scheme  string            `json:"scheme"`
	Host    string            `json:"host"`
	Port    string            `json:"port,omitempty"`
	URI     string            `json:"uri"`
	Headers map[string]string `json:"headers"`
}

// NewRequest snapshots r. The scheme and authority come from r.URL when it
// is absolute, otherwise from r.Host and the connection state.
func NewRequest(r *http.Request) Request {
	scheme, host, port := Target(r)
	return Request{
		Method:  r.Method,
		Scheme:  scheme,
		Host:    host,
		Port:    port,
		URI:     r.URL.RequestURI(),
		Headers: flatten(r.Header),
	}
}

// Header returns the value of the named header, matched case-insensitively.
// Missing headers yield "".
func (r Request) Header(name string) string {
	if v, ok := r.Headers[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Target returns the scheme, host and optional port r is addressed to.
func Target(r *http.Request) (scheme, host, port string) {
	scheme = r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	if r.URL.Host != "" {
		return scheme, r.URL.Hostname(), r.URL.Port()
	}
	host = r.Host
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		return scheme, host[:i], host[i+1:]
	}
	return scheme, host, ""
}

// listHeaders are comma-separated lists whose field lines are joined
// instead of keeping only the first one.
var listHeaders = map[string]bool{
	"Vary": true,
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		name = http.CanonicalHeaderKey(name)
		if listHeaders[name] {
			out[name] = strings.Join(values, ", ")
			continue
		}
		out[name] = values[0]
	}
	return out
}
