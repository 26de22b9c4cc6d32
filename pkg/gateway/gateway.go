// Package gateway implements the fetch strategies behind an http.RoundTripper so that every request
// made through it is routed, cached and given a fallback the same way.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/cache"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/metrics"
	"github.com/terrycain/offline-cache-gateway/pkg/router"
)

const (
	// HeaderSource tells the caller where a response came from.
	HeaderSource   = "X-Gateway-Source"
	HeaderStoredAt = "X-Gateway-Stored-At"

	SourceNetwork = "network"
	SourceStatic  = "static-cache"
	SourceStale   = "dynamic-cache-stale"
	SourceOffline = "offline-page"
	SourceSynth   = "synthesized"

	staleWarning = `110 - "Response is Stale"`
)

type Gateway struct {
	Router  *router.Router
	Store   *cache.Store
	Names   cache.Names
	Network http.RoundTripper
}

func New(r *router.Router, store *cache.Store, names cache.Names, network http.RoundTripper) *Gateway {
	return &Gateway{Router: r, Store: store, Names: names, Network: network}
}

func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	route := g.Router.Classify(req.URL)
	metrics.Routes.WithLabelValues(route.String()).Inc()

	switch route {
	case router.RouteNetworkFirst:
		return g.NetworkFirst(req)
	case router.RouteCacheFirst:
		return g.CacheFirst(req)
	default:
		return g.Network.RoundTrip(req)
	}
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299 && resp.StatusCode != http.StatusPartialContent
}

// mirror writes resp into the dynamic partition. Cache problems never fail the request, the only
// error returned is a broken response body.
func (g *Gateway) mirror(req *http.Request, resp *http.Response) (*http.Response, error) {
	if req.Method != http.MethodGet || !ok(resp) {
		return resp, nil
	}

	stored, err := g.Store.Put(g.Names.Dynamic(), req, resp)
	if stored == nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, e.ErrNotCacheable) {
		log.Warn().Err(err).Str("url", req.URL.String()).Msg("Failed to store response in dynamic partition")
	}
	return stored, nil
}

// CacheFirst serves from the static partition when possible and only goes to the network on a miss.
func (g *Gateway) CacheFirst(req *http.Request) (*http.Response, error) {
	cached, err := g.Store.Match(g.Names.Static(), req)
	if err == nil {
		metrics.CacheLookups.WithLabelValues("static", "hit").Inc()
		cached.Header.Set(HeaderSource, SourceStatic)
		return cached, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		log.Warn().Err(err).Str("url", req.URL.String()).Msg("Static partition lookup failed")
	}
	metrics.CacheLookups.WithLabelValues("static", "miss").Inc()

	resp, err := g.Network.RoundTrip(req)
	if err == nil {
		resp, err = g.mirror(req, resp)
	}
	if err == nil {
		resp.Header.Set(HeaderSource, SourceNetwork)
		return resp, nil
	}

	log.Debug().Err(err).Str("url", req.URL.String()).Msg("Cache-first network fetch failed")
	return g.offlineFallback(req), nil
}

func (g *Gateway) offlineFallback(req *http.Request) *http.Response {
	offlineURL := g.Router.Origin.ResolveReference(&url.URL{Path: cache.OfflinePage})
	offlineReq, err := http.NewRequest(http.MethodGet, offlineURL.String(), nil)
	if err == nil {
		page, err2 := g.Store.Match(g.Names.Static(), offlineReq)
		if err2 == nil {
			metrics.Fallbacks.WithLabelValues("cache-first", "offline-page").Inc()
			page.Request = req
			page.Header.Set(HeaderSource, SourceOffline)
			return page
		}
	}

	metrics.Fallbacks.WithLabelValues("cache-first", "synthesized").Inc()
	header := http.Header{}
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set(HeaderSource, SourceSynth)
	return cache.NewResponse(req, http.StatusServiceUnavailable, header, []byte("Service Unavailable"))
}

// NetworkFirst always tries the network. Only on a network failure is the last mirrored copy
// served, marked as stale. Without a copy the failure is returned to the caller.
func (g *Gateway) NetworkFirst(req *http.Request) (*http.Response, error) {
	resp, netErr := g.Network.RoundTrip(req)
	if netErr == nil {
		resp, netErr = g.mirror(req, resp)
	}
	if netErr == nil {
		resp.Header.Set(HeaderSource, SourceNetwork)
		return resp, nil
	}

	cached, err := g.Store.Match(g.Names.Dynamic(), req)
	if err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			log.Warn().Err(err).Str("url", req.URL.String()).Msg("Dynamic partition lookup failed")
		}
		metrics.CacheLookups.WithLabelValues("dynamic", "miss").Inc()
		return nil, fmt.Errorf("%w: %w", e.ErrNetwork, netErr)
	}

	metrics.CacheLookups.WithLabelValues("dynamic", "hit").Inc()
	metrics.Fallbacks.WithLabelValues("network-first", "stale").Inc()
	cached.Header.Set(HeaderSource, SourceStale)
	cached.Header.Add("Warning", staleWarning)
	if date, err2 := http.ParseTime(cached.Header.Get("Date")); err2 == nil {
		cached.Header.Set(HeaderStoredAt, date.UTC().Format(time.RFC3339))
	}
	return cached, nil
}

// Stale reports whether resp was served from the dynamic partition after a network failure.
func Stale(resp *http.Response) bool {
	return resp != nil && resp.Header.Get(HeaderSource) == SourceStale
}
