package cachecontrol

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Request holds the directives a client may send.
type Request struct {
	MaxAge       Directive
	MaxStale     Directive
	MinFresh     Directive
	NoCache      Directive
	NoStore      Directive
	NoTransform  Directive
	OnlyIfCached Directive
	StaleIfError Directive
}

// ParseRequest parses the request directives in h.
func (p Parser) ParseRequest(h http.Header) (Request, error) {
	toks, err := tokens(h)
	if err != nil {
		return Request{}, err
	}
	return Request{
		MaxAge:       p.find(toks, "max-age"),
		MaxStale:     p.find(toks, "max-stale"),
		MinFresh:     p.find(toks, "min-fresh"),
		NoCache:      p.find(toks, "no-cache"),
		NoStore:      p.find(toks, "no-store"),
		NoTransform:  p.find(toks, "no-transform"),
		OnlyIfCached: p.find(toks, "only-if-cached"),
		StaleIfError: p.find(toks, "stale-if-error"),
	}, nil
}

// MarshalZerologObject logs the present directives.
func (r Request) MarshalZerologObject(e *zerolog.Event) {
	logDirective(e, "max-age", r.MaxAge)
	logDirective(e, "max-stale", r.MaxStale)
	logDirective(e, "min-fresh", r.MinFresh)
	logDirective(e, "no-cache", r.NoCache)
	logDirective(e, "no-store", r.NoStore)
	logDirective(e, "no-transform", r.NoTransform)
	logDirective(e, "only-if-cached", r.OnlyIfCached)
	logDirective(e, "stale-if-error", r.StaleIfError)
}

// Response holds the directives an origin may send.
type Response struct {
	MaxAge               Directive
	SMaxAge              Directive
	NoCache              Directive
	NoStore              Directive
	NoTransform          Directive
	MustRevalidate       Directive
	ProxyRevalidate      Directive
	MustUnderstand       Directive
	Private              Directive
	Public               Directive
	Immutable            Directive
	StaleWhileRevalidate Directive
	StaleIfError         Directive
}

// ParseResponse parses the response directives in h.
func (p Parser) ParseResponse(h http.Header) (Response, error) {
	toks, err := tokens(h)
	if err != nil {
		return Response{}, err
	}
	return Response{
		MaxAge:               p.find(toks, "max-age"),
		SMaxAge:              p.find(toks, "s-maxage"),
		NoCache:              p.find(toks, "no-cache"),
		NoStore:              p.find(toks, "no-store"),
		NoTransform:          p.find(toks, "no-transform"),
		MustRevalidate:       p.find(toks, "must-revalidate"),
		ProxyRevalidate:      p.find(toks, "proxy-revalidate"),
		MustUnderstand:       p.find(toks, "must-understand"),
		Private:              p.find(toks, "private"),
		Public:               p.find(toks, "public"),
		Immutable:            p.find(toks, "immutable"),
		StaleWhileRevalidate: p.find(toks, "stale-while-revalidate"),
		StaleIfError:         p.find(toks, "stale-if-error"),
	}, nil
}

// MarshalZerologObject logs the present directives.
func (r Response) MarshalZerologObject(e *zerolog.Event) {
	logDirective(e, "max-age", r.MaxAge)
	logDirective(e, "s-maxage", r.SMaxAge)
	logDirective(e, "no-cache", r.NoCache)
	logDirective(e, "no-store", r.NoStore)
	logDirective(e, "no-transform", r.NoTransform)
	logDirective(e, "must-revalidate", r.MustRevalidate)
	logDirective(e, "proxy-revalidate", r.ProxyRevalidate)
	logDirective(e, "must-understand", r.MustUnderstand)
	logDirective(e, "private", r.Private)
	logDirective(e, "public", r.Public)
	logDirective(e, "immutable", r.Immutable)
	logDirective(e, "stale-while-revalidate", r.StaleWhileRevalidate)
	logDirective(e, "stale-if-error", r.StaleIfError)
}
