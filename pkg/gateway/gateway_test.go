package gateway

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/terrycain/offline-cache-gateway/pkg/cache"
	"github.com/terrycain/offline-cache-gateway/pkg/database"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/router"
	"github.com/terrycain/offline-cache-gateway/pkg/storage/disk"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	if _, exists := os.LookupEnv("DEBUG"); exists {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	os.Exit(m.Run())
}

var errUnreachable = errors.New("network unreachable")

// switchableNetwork serves the body registered for a URL, or fails every request while offline.
type switchableNetwork struct {
	mu      sync.Mutex
	calls   int
	offline bool
	bodies  map[string]string
}

func (n *switchableNetwork) RoundTrip(req *http.Request) (*http.Response, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.offline {
		return nil, errUnreachable
	}
	body, exists := n.bodies[req.URL.String()]
	if !exists {
		return cache.NewResponse(req, http.StatusNotFound, nil, []byte("not found")), nil
	}
	return cache.NewResponse(req, http.StatusOK, http.Header{"Content-Type": []string{"text/plain"}}, []byte(body)), nil
}

func (n *switchableNetwork) setOffline(offline bool) {
	n.mu.Lock()
	n.offline = offline
	n.mu.Unlock()
}

func (n *switchableNetwork) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func newTestGateway(t *testing.T, network *switchableNetwork) *Gateway {
	t.Helper()

	db, err := database.GetBackend("sqlite", filepath.Join(t.TempDir(), "gateway.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	st, err := disk.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	origin, _ := url.Parse("http://gateway.test")

	return New(router.New(origin, router.DefaultTrustedHosts, ""), cache.NewStore(db, st), cache.Names{Prefix: "sentinel", Version: "v1"}, network)
}

func get(t *testing.T, gw *Gateway, rawURL string) (*http.Response, string, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := gw.RoundTrip(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body), nil
}

func seedStatic(t *testing.T, gw *Gateway, rawURL, body string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, rawURL, nil)
	resp := cache.NewResponse(req, http.StatusOK, http.Header{"Content-Type": []string{"text/html"}}, []byte(body))
	if _, err := gw.Store.Put(gw.Names.Static(), req, resp); err != nil {
		t.Fatal(err)
	}
}

func TestCacheFirstStaticHit(t *testing.T) {
	network := &switchableNetwork{bodies: map[string]string{"http://gateway.test/css/styles.css": "live"}}
	gw := newTestGateway(t, network)
	seedStatic(t, gw, "http://gateway.test/css/styles.css", "cached")

	resp, body, err := get(t, gw, "http://gateway.test/css/styles.css")
	if err != nil {
		t.Fatal(err)
	}
	if body != "cached" {
		t.Fatalf("expected cached body, got %q", body)
	}
	if resp.Header.Get(HeaderSource) != SourceStatic {
		t.Fatalf("unexpected source %q", resp.Header.Get(HeaderSource))
	}
	if network.callCount() != 0 {
		t.Fatalf("static hit made %d network calls", network.callCount())
	}
}

func TestCacheFirstMissMirrors(t *testing.T) {
	network := &switchableNetwork{bodies: map[string]string{"https://fonts.googleapis.com/css2?family=Inter": "font-css"}}
	gw := newTestGateway(t, network)

	resp, body, err := get(t, gw, "https://fonts.googleapis.com/css2?family=Inter")
	if err != nil {
		t.Fatal(err)
	}
	if body != "font-css" || resp.Header.Get(HeaderSource) != SourceNetwork {
		t.Fatalf("unexpected response %q from %q", body, resp.Header.Get(HeaderSource))
	}

	req, _ := http.NewRequest(http.MethodGet, "https://fonts.googleapis.com/css2?family=Inter", nil)
	if _, err = gw.Store.Match(gw.Names.Dynamic(), req); err != nil {
		t.Fatalf("trusted response not mirrored into dynamic partition: %v", err)
	}
}

func TestCacheFirstOfflinePage(t *testing.T) {
	network := &switchableNetwork{offline: true}
	gw := newTestGateway(t, network)
	seedStatic(t, gw, "http://gateway.test/offline.html", "<h1>Offline</h1>")

	resp, body, err := get(t, gw, "http://gateway.test/js/unknown.js")
	if err != nil {
		t.Fatal(err)
	}
	if body != "<h1>Offline</h1>" || resp.Header.Get(HeaderSource) != SourceOffline {
		t.Fatalf("expected offline page, got %q from %q", body, resp.Header.Get(HeaderSource))
	}
}

func TestCacheFirstSynthesized(t *testing.T) {
	gw := newTestGateway(t, &switchableNetwork{offline: true})

	resp, body, err := get(t, gw, "http://gateway.test/js/unknown.js")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable || body != "Service Unavailable" {
		t.Fatalf("expected synthesized 503, got %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get(HeaderSource) != SourceSynth {
		t.Fatalf("unexpected source %q", resp.Header.Get(HeaderSource))
	}
}

func TestNetworkFirstPrefersLive(t *testing.T) {
	network := &switchableNetwork{bodies: map[string]string{"http://gateway.test/api/alerts": `["old"]`}}
	gw := newTestGateway(t, network)

	if _, _, err := get(t, gw, "http://gateway.test/api/alerts"); err != nil {
		t.Fatal(err)
	}
	network.bodies["http://gateway.test/api/alerts"] = `["new"]`

	resp, body, err := get(t, gw, "http://gateway.test/api/alerts")
	if err != nil {
		t.Fatal(err)
	}
	if body != `["new"]` {
		t.Fatalf("expected live body, got %q", body)
	}
	if Stale(resp) {
		t.Fatal("live response marked stale")
	}
	if network.callCount() != 2 {
		t.Fatalf("expected 2 network calls, got %d", network.callCount())
	}
}

func TestNetworkFirstStaleFallback(t *testing.T) {
	network := &switchableNetwork{bodies: map[string]string{"http://gateway.test/api/dashboard/stats": `{"total_cameras":3}`}}
	gw := newTestGateway(t, network)

	if _, _, err := get(t, gw, "http://gateway.test/api/dashboard/stats"); err != nil {
		t.Fatal(err)
	}
	network.setOffline(true)

	resp, body, err := get(t, gw, "http://gateway.test/api/dashboard/stats")
	if err != nil {
		t.Fatal(err)
	}
	if body != `{"total_cameras":3}` {
		t.Fatalf("unexpected stale body %q", body)
	}
	if !Stale(resp) {
		t.Fatal("fallback response not marked stale")
	}
	if resp.Header.Get("Warning") == "" || resp.Header.Get(HeaderStoredAt) == "" {
		t.Fatalf("missing stale headers: %v", resp.Header)
	}
}

func TestNetworkFirstNoCopy(t *testing.T) {
	gw := newTestGateway(t, &switchableNetwork{offline: true})

	_, _, err := get(t, gw, "http://gateway.test/api/cameras")
	if !errors.Is(err, e.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, errUnreachable) {
		t.Fatalf("cause lost from %v", err)
	}
}

func TestNetworkFirstErrorStatusNotMirrored(t *testing.T) {
	network := &switchableNetwork{bodies: map[string]string{}}
	gw := newTestGateway(t, network)

	resp, _, err := get(t, gw, "http://gateway.test/api/missing")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected live 404, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://gateway.test/api/missing", nil)
	if _, err = gw.Store.Match(gw.Names.Dynamic(), req); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("error response was mirrored: %v", err)
	}
}

func TestPassThrough(t *testing.T) {
	network := &switchableNetwork{bodies: map[string]string{"https://tracker.example.com/pixel": "px"}}
	gw := newTestGateway(t, network)

	resp, body, err := get(t, gw, "https://tracker.example.com/pixel")
	if err != nil {
		t.Fatal(err)
	}
	if body != "px" || resp.Header.Get(HeaderSource) != "" {
		t.Fatalf("unexpected pass-through response %q from %q", body, resp.Header.Get(HeaderSource))
	}

	partitions, err := gw.Store.Partitions()
	if err != nil {
		t.Fatal(err)
	}
	if len(partitions) != 0 {
		t.Fatalf("pass-through request touched the cache: %v", partitions)
	}

	network.setOffline(true)
	if _, _, err = get(t, gw, "https://tracker.example.com/pixel"); err == nil {
		t.Fatal("expected network error to be returned untouched")
	}
}
