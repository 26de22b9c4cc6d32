// Package router classifies outgoing requests and picks the fetch strategy for them. The decision
// is purely origin and path based.
package router

import (
	"net/url"
	"strings"

	"github.com/terrycain/offline-cache-gateway/pkg/utils"
)

type Route int

const (
	// RoutePassThrough leaves the request to plain network handling, no caching.
	RoutePassThrough Route = iota
	RouteCacheFirst
	RouteNetworkFirst
)

func (r Route) String() string {
	switch r {
	case RouteCacheFirst:
		return "cache-first"
	case RouteNetworkFirst:
		return "network-first"
	default:
		return "pass-through"
	}
}

var DefaultTrustedHosts = []string{"fonts.googleapis.com", "cdnjs.cloudflare.com"}

const DefaultAPIMarker = "/api/"

type Router struct {
	Origin       *url.URL
	TrustedHosts []string
	APIMarker    string
}

func New(origin *url.URL, trustedHosts []string, apiMarker string) *Router {
	if apiMarker == "" {
		apiMarker = DefaultAPIMarker
	}
	return &Router{Origin: origin, TrustedHosts: trustedHosts, APIMarker: apiMarker}
}

// SameOrigin compares scheme and host (including port).
func (r *Router) SameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, r.Origin.Scheme) && strings.EqualFold(u.Host, r.Origin.Host)
}

func (r *Router) Trusted(u *url.URL) bool {
	return utils.ContainsFold(r.TrustedHosts, u.Hostname())
}

func (r *Router) Classify(u *url.URL) Route {
	if !r.SameOrigin(u) && !r.Trusted(u) {
		return RoutePassThrough
	}
	if strings.Contains(u.Path, r.APIMarker) {
		return RouteNetworkFirst
	}
	return RouteCacheFirst
}
