package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/cacher/pkg/cache"
	"github.com/Sternrassler/cacher/pkg/cachecontrol"
	"github.com/Sternrassler/cacher/pkg/message"
)

// State is a step of the per-request flow.
type State int

const (
	StateRewrite State = iota
	StateParse
	StateBypass
	StateKeyDerive
	StateLookup
	StateMiss
	StateForward
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRewrite:
		return "rewrite"
	case StateParse:
		return "parse"
	case StateBypass:
		return "bypass"
	case StateKeyDerive:
		return "key_derive"
	case StateLookup:
		return "lookup"
	case StateMiss:
		return "miss"
	case StateForward:
		return "forward"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// flow carries the state of one request through the proxy.
type flow struct {
	p      *Proxy
	w      http.ResponseWriter
	r      *http.Request
	ctx    context.Context
	logger zerolog.Logger

	out        *http.Request
	directives cachecontrol.Request
	conn       cache.Conn
	key        cache.Key

	status Status
	err    error
}

func (f *flow) run() {
	defer f.release()

	state := StateRewrite
	for state != StateDone {
		f.logger.Debug().Stringer("state", state).Msg("Entering state")
		state = f.step(state)
	}
}

func (f *flow) step(s State) State {
	switch s {
	case StateRewrite:
		return f.rewrite()
	case StateParse:
		return f.parse()
	case StateBypass:
		return f.checkBypass()
	case StateKeyDerive:
		return f.deriveKey()
	case StateLookup:
		return f.lookup()
	case StateMiss:
		return f.miss()
	case StateForward:
		return f.forward()
	default:
		return StateDone
	}
}

func (f *flow) release() {
	if f.conn == nil {
		return
	}
	if err := f.conn.Close(); err != nil {
		f.logger.Debug().Err(err).Msg("Failed to release store connection")
	}
	f.conn = nil
}

func (f *flow) fail(kind Kind, op string, err error) State {
	f.err = &Error{Kind: kind, Op: op, Err: err}
	return StateDone
}

// Step 1: build the outbound request against the backend.
func (f *flow) rewrite() State {
	target, err := f.p.target(f.r)
	if err != nil {
		return f.fail(KindTarget, "rewrite", err)
	}

	out, err := http.NewRequestWithContext(f.ctx, f.r.Method, target.String(), f.r.Body)
	if err != nil {
		return f.fail(KindTarget, "rewrite", err)
	}
	out.Header = f.r.Header.Clone()
	out.ContentLength = f.r.ContentLength
	f.out = out

	f.logger = f.logger.With().Str("target", target.String()).Logger()
	return StateParse
}

// Step 2: parse request Cache-Control, falling back to no directives.
func (f *flow) parse() State {
	directives, err := f.p.parser.ParseRequest(f.r.Header)
	if err != nil && !errors.Is(err, cachecontrol.ErrNoHeader) {
		f.logger.Debug().Err(err).Msg("Ignoring unparsable Cache-Control")
	}
	f.directives = directives
	return StateBypass
}

// Step 3: consult the bypass policy.
func (f *flow) checkBypass() State {
	if f.p.bypass(f.directives) {
		f.logger.Debug().Object("cache_control", f.directives).Msg("Bypassing store")
		return StateForward
	}
	return StateKeyDerive
}

// Step 4: check out a store connection and derive the cache key.
func (f *flow) deriveKey() State {
	conn, err := f.p.store.Acquire(f.ctx)
	if err != nil {
		return f.readFailure("acquire", err)
	}
	f.conn = conn

	if !f.p.opts.Vary {
		f.key = f.finalKey(cache.NoVaryKey(f.out))
		return StateLookup
	}

	vary, _, err := conn.Get(f.ctx, cache.VaryRegistrationKey(f.out.URL.Path))
	if err != nil {
		return f.readFailure("vary lookup", err)
	}
	f.key = f.finalKey(cache.VaryKey(vary, f.out))
	return StateLookup
}

// Step 5: serve from the store when the key is present.
func (f *flow) lookup() State {
	f.logger.Debug().Str("key", f.key.String()).Msg("Looking up cache key")

	value, found, err := f.conn.Get(f.ctx, f.key.String())
	if err != nil {
		return f.readFailure("lookup", err)
	}
	if !found {
		return StateMiss
	}

	stored, err := message.Unmarshal(value)
	if err != nil {
		return f.fail(KindReconstruct, "decode cached response", err)
	}
	resp, err := stored.HTTPResponse()
	if err != nil {
		return f.fail(KindReconstruct, "rebuild cached response", err)
	}

	f.status = StatusHit
	f.write(resp)
	return StateDone
}

// Step 6: fetch the origin, store the response and relay it.
func (f *flow) miss() State {
	resp, err := f.p.fetch(f.ctx, f.out, f.logger)
	if err != nil {
		return f.fail(KindOrigin, "fetch origin", err)
	}
	stored := message.NewResponse(resp)

	if cc, err := f.p.parser.ParseResponse(resp.Header); err == nil {
		f.logger.Debug().Object("cache_control", cc).Msg("Origin response directives")
	}

	if f.p.opts.Vary {
		vary := stored.Headers["Vary"]
		f.key = f.finalKey(cache.VaryKeyFromSnapshot(vary, message.NewRequest(f.out)))
		f.storeWrite("vary", func() error {
			return f.conn.Set(f.ctx, cache.VaryRegistrationKey(f.out.URL.Path), vary)
		})
	}

	payload, err := stored.Marshal()
	if err != nil {
		return f.fail(KindEncode, "encode response", err)
	}

	key := f.key.String()
	if f.storeWrite("set", func() error { return f.conn.Set(f.ctx, key, payload) }) {
		f.storeWrite("expire", func() error { return f.conn.Expire(f.ctx, key, f.p.opts.TTL) })
	}

	out, err := stored.HTTPResponse()
	if err != nil {
		return f.fail(KindReconstruct, "rebuild origin response", err)
	}

	f.status = StatusMiss
	f.write(out)
	return StateDone
}

// forward relays the origin response without touching the store.
func (f *flow) forward() State {
	f.release()

	resp, err := f.p.fetch(f.ctx, f.out, f.logger)
	if err != nil {
		return f.fail(KindOrigin, "fetch origin", err)
	}
	defer resp.Body.Close()

	f.status = StatusDynamic
	f.write(resp)
	return StateDone
}

// readFailure fails the request, or forwards it when fail-open is enabled.
func (f *flow) readFailure(op string, err error) State {
	if f.p.opts.FailOpen {
		f.logger.Warn().Err(err).Str("op", op).Msg("Store read failed, forwarding uncached")
		return StateForward
	}
	return f.fail(KindStoreRead, op, err)
}

// storeWrite runs a write whose failure is logged and counted only.
// It reports whether the write succeeded.
func (f *flow) storeWrite(op string, write func() error) bool {
	if err := write(); err != nil {
		storeWriteFailures.WithLabelValues(op).Inc()
		f.logger.Warn().
			Err(&Error{Kind: KindStoreWrite, Op: op, Err: err}).
			Str("key", f.key.String()).
			Msg("Store write failed")
		return false
	}
	return true
}

func (f *flow) finalKey(k cache.Key) cache.Key {
	if f.p.opts.HashKeys {
		return cache.Hashed(k)
	}
	return k
}

// write copies resp to the client and tags it with the cache status.
func (f *flow) write(resp *http.Response) {
	h := f.w.Header()
	for name, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			h.Add(name, v)
		}
	}
	h.Add(StatusHeader, string(f.status))
	if length := f.contentLength(resp); length >= 0 {
		h.Set("Content-Length", strconv.FormatInt(length, 10))
	}

	f.w.WriteHeader(resp.StatusCode)
	if resp.Body == nil {
		return
	}
	if _, err := io.Copy(f.w, resp.Body); err != nil {
		f.logger.Debug().Err(err).Msg("Client write interrupted")
	}
}

// contentLength is the length announced to the client. HEAD responses carry
// no body, so the origin's Content-Length is kept for them.
func (f *flow) contentLength(resp *http.Response) int64 {
	if f.r.Method == http.MethodHead {
		if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return resp.ContentLength
}

// hopHeaders are not copied to the client. Content-Length is recomputed.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Connection":    true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Content-Length":      true,
}
