package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"github.com/Sternrassler/cacher/pkg/message"
)

// Key identifies a cached response in the store.
type Key string

func (k Key) String() string {
	return string(k)
}

// NoVaryKey derives the key for r when Vary handling is disabled.
//
// Format: {method}_{scheme}://{host}[:{port}]{path+query}{Accept-Language}
//
// Example:
//
//	GET_http://origin:9191/items?page=2de-DE
func NoVaryKey(r *http.Request) Key {
	scheme, host, port := message.Target(r)
	var b strings.Builder
	writeBase(&b, r.Method, scheme, host, port, r.URL.RequestURI())
	b.WriteString(r.Header.Get("Accept-Language"))
	return Key(b.String())
}

// VaryKey derives the key for the live request r, varying on the headers
// named in vary.
func VaryKey(vary string, r *http.Request) Key {
	scheme, host, port := message.Target(r)
	return buildVaryKey(vary, r.Method, scheme, host, port, r.URL.RequestURI(), r.Header.Get)
}

// VaryKeyFromSnapshot derives the key for a request snapshot. It produces the
// same key as VaryKey for the same logical request.
func VaryKeyFromSnapshot(vary string, req message.Request) Key {
	return buildVaryKey(vary, req.Method, req.Scheme, req.Host, req.Port, req.URI, req.Header)
}

// VaryRegistrationKey returns the store key holding the Vary value last seen
// for path.
func VaryRegistrationKey(path string) string {
	return strings.ToLower(path)
}

// Hashed returns a fixed-length form of k.
func Hashed(k Key) Key {
	sum := sha256.Sum256([]byte(k))
	return Key(hex.EncodeToString(sum[:]))
}

// VaryNames splits a Vary header value into lower-cased, sorted, unique
// header names. Empty entries are dropped.
func VaryNames(vary string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, part := range strings.Split(vary, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildVaryKey(vary, method, scheme, host, port, uri string, lookup func(string) string) Key {
	var b strings.Builder
	writeBase(&b, method, scheme, host, port, uri)
	for _, name := range VaryNames(vary) {
		b.WriteString(lookup(name))
	}
	return Key(b.String())
}

func writeBase(b *strings.Builder, method, scheme, host, port, uri string) {
	b.WriteString(method)
	b.WriteByte('_')
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteString(uri)
}
