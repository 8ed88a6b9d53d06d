// Package cachecontrol parses Cache-Control header values into request and
// response directive sets.
//
// Each recognized directive is either absent or present with the raw token
// that matched it (lower-cased, including any "=value" suffix). Values are
// not coerced; Directive.Seconds parses a delta-seconds argument on demand.
//
// A missing Cache-Control header is reported as ErrNoHeader rather than an
// empty set. Use RequestOrDefault / ResponseOrDefault to downgrade it.
package cachecontrol

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HeaderName is the header the parser reads.
const HeaderName = "Cache-Control"

// ErrNoHeader indicates the message carried no Cache-Control header.
var ErrNoHeader = errors.New("no cache-control header")

// MatchMode selects how a token is matched against a directive name.
type MatchMode string

const (
	// MatchPrefix treats a token as the directive when it starts with the
	// directive name. "privateXYZ" therefore matches "private".
	MatchPrefix MatchMode = "prefix"

	// MatchExact requires the token to be the directive name or
	// "name=value".
	MatchExact MatchMode = "exact"
)

// ParseMatchMode converts a configuration string into a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchPrefix:
		return MatchPrefix, nil
	case MatchExact:
		return MatchExact, nil
	default:
		return "", fmt.Errorf("unknown directive match mode %q", s)
	}
}

// Directive is a single Cache-Control directive.
type Directive struct {
	Present bool
	Raw     string
}

// Seconds returns the delta-seconds argument of the directive, if it has one.
func (d Directive) Seconds() (time.Duration, bool) {
	if !d.Present {
		return 0, false
	}
	_, arg, ok := strings.Cut(d.Raw, "=")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(arg), `"`), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

func (d Directive) String() string {
	if !d.Present {
		return "<absent>"
	}
	return d.Raw
}

// Parser parses Cache-Control values with a configurable match mode.
// The zero value uses MatchPrefix.
type Parser struct {
	Match MatchMode
}

var defaultParser = Parser{Match: MatchPrefix}

// ParseRequest parses request directives with prefix matching.
func ParseRequest(h http.Header) (Request, error) {
	return defaultParser.ParseRequest(h)
}

// ParseResponse parses response directives with prefix matching.
func ParseResponse(h http.Header) (Response, error) {
	return defaultParser.ParseResponse(h)
}

// RequestOrDefault returns the parsed request directives, or the all-absent
// set when the header is missing.
func RequestOrDefault(h http.Header) Request {
	req, _ := ParseRequest(h)
	return req
}

// ResponseOrDefault returns the parsed response directives, or the all-absent
// set when the header is missing.
func ResponseOrDefault(h http.Header) Response {
	resp, _ := ParseResponse(h)
	return resp
}

// tokens returns the trimmed, lower-cased comma separated tokens of every
// Cache-Control field line in h.
func tokens(h http.Header) ([]string, error) {
	values := h.Values(HeaderName)
	if len(values) == 0 {
		return nil, ErrNoHeader
	}
	var out []string
	for _, v := range values {
		for _, tok := range strings.Split(v, ",") {
			out = append(out, strings.ToLower(strings.TrimSpace(tok)))
		}
	}
	return out, nil
}

// find returns the first token matching name.
func (p Parser) find(toks []string, name string) Directive {
	for _, tok := range toks {
		if p.matches(tok, name) {
			return Directive{Present: true, Raw: tok}
		}
	}
	return Directive{}
}

func (p Parser) matches(tok, name string) bool {
	if p.Match == MatchExact {
		return tok == name || strings.HasPrefix(tok, name+"=")
	}
	return strings.HasPrefix(tok, name)
}

func logDirective(e *zerolog.Event, name string, d Directive) {
	if d.Present {
		e.Str(name, d.Raw)
	}
}
