// Package proxy implements the caching reverse proxy handler.
//
// Every request runs through a small state machine:
//
//	Rewrite -> Parse -> Bypass -> KeyDerive -> Lookup -> Miss
//	                      |           |           |
//	                      +-----------+-----> Forward (DYNAMIC)
//
// Lookup answers hits from the store (HIT). Miss fetches the origin, stores
// the normalized response and relays it (MISS). Forward relays the origin
// response untouched (DYNAMIC); it is taken on bypass, and on store read
// failures when FailOpen is set.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/cacher/pkg/cache"
	"github.com/Sternrassler/cacher/pkg/cachecontrol"
)

// Default option values.
const (
	DefaultTTL           = 5 * time.Second
	DefaultOriginTimeout = 30 * time.Second
)

// Store hands out store connections. *cache.Store implements it.
type Store interface {
	Acquire(ctx context.Context) (cache.Conn, error)
}

// BypassPolicy decides from the request directives whether the store is
// skipped for a request.
type BypassPolicy func(cachecontrol.Request) bool

// StaticBypass returns a policy that bypasses every request when always is
// set, and requests carrying no-store when onNoStore is set.
func StaticBypass(always, onNoStore bool) BypassPolicy {
	return func(cc cachecontrol.Request) bool {
		return always || (onNoStore && cc.NoStore.Present)
	}
}

// Options configures a Proxy.
type Options struct {
	// Backend is the origin base URL, e.g. "http://origin:9191".
	Backend string

	// Vary enables Vary-aware cache keys.
	Vary bool

	// TTL is applied to every stored response. Defaults to DefaultTTL.
	TTL time.Duration

	// Bypass skips the store for every request.
	Bypass bool

	// BypassOnNoStore skips the store for requests carrying no-store.
	BypassOnNoStore bool

	// BypassPolicy overrides Bypass and BypassOnNoStore when set.
	BypassPolicy BypassPolicy

	// FailOpen forwards requests as DYNAMIC when the store cannot be read
	// instead of failing them.
	FailOpen bool

	// OriginTimeout bounds a single origin round trip. Defaults to
	// DefaultOriginTimeout.
	OriginTimeout time.Duration

	// OriginRetries is the number of retries of bodiless idempotent requests
	// after a network failure.
	OriginRetries int

	// HashKeys stores entries under the SHA-256 of their key.
	HashKeys bool

	// Match selects Cache-Control directive matching. Defaults to prefix.
	Match cachecontrol.MatchMode

	// Client overrides the origin HTTP client. Its redirect policy is kept.
	Client *http.Client
}

// Proxy is an http.Handler serving requests from the store or the origin.
type Proxy struct {
	backend *url.URL
	store   Store
	client  *http.Client
	parser  cachecontrol.Parser
	bypass  BypassPolicy
	retry   RetryConfig
	opts    Options
	logger  zerolog.Logger
}

// New creates a proxy in front of opts.Backend using store.
func New(store Store, opts Options) (*Proxy, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	backend, err := parseBackend(opts.Backend)
	if err != nil {
		return nil, err
	}

	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.OriginTimeout <= 0 {
		opts.OriginTimeout = DefaultOriginTimeout
	}
	if opts.Match == "" {
		opts.Match = cachecontrol.MatchPrefix
	}

	bypass := opts.BypassPolicy
	if bypass == nil {
		bypass = StaticBypass(opts.Bypass, opts.BypassOnNoStore)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.OriginTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return &Proxy{
		backend: backend,
		store:   store,
		client:  client,
		parser:  cachecontrol.Parser{Match: opts.Match},
		bypass:  bypass,
		retry:   RetryConfigFor(opts.OriginRetries),
		opts:    opts,
		logger:  log.With().Str("component", "proxy").Logger(),
	}, nil
}

// Backend returns the origin base URL.
func (p *Proxy) Backend() string {
	return p.backend.String()
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	f := &flow{
		p:      p,
		w:      w,
		r:      r,
		ctx:    r.Context(),
		logger: p.requestLogger(r),
	}
	f.run()

	label := string(f.status)
	if f.err != nil {
		label = statusError
		f.logger.Error().
			Err(f.err).
			Str("kind", string(KindOf(f.err))).
			Msg("Request failed")
		WriteError(w, f.err)
	}
	requestsTotal.WithLabelValues(label).Inc()
	requestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// requestLogger prefers the logger attached to the request context by
// hlog middleware.
func (p *Proxy) requestLogger(r *http.Request) zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l.With().Str("component", "proxy").Logger()
	}
	return p.logger
}

// target joins the backend base URL and the inbound request URI.
func (p *Proxy) target(r *http.Request) (*url.URL, error) {
	raw := strings.TrimRight(p.backend.String(), "/") + r.URL.RequestURI()
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
	}
	return u, nil
}

func parseBackend(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: backend: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: backend scheme must be http or https, got %q", ErrInvalidTarget, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: backend has no host: %q", ErrInvalidTarget, raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
