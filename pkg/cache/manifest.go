package cache

import (
	"fmt"
	"net/url"
)

// DefaultAssets is the build-time list of UI assets seeded into the static partition.
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/offline.html",
	"/css/styles.css",
	"/js/app.js",
	"/js/charts.js",
	"/js/voice.js",
	"/manifest.json",
	"https://fonts.googleapis.com/css2?family=Inter:wght@300;400;500;600;700&display=swap",
	"https://cdnjs.cloudflare.com/ajax/libs/font-awesome/6.4.0/css/all.min.css",
	"https://cdnjs.cloudflare.com/ajax/libs/Chart.js/4.4.0/chart.umd.min.js",
}

// OfflinePage is served from the static partition when a cache-first fetch fails.
const OfflinePage = "/offline.html"

// Manifest is the fixed set of resources that must all be in the static partition after install.
// Entries are either absolute URLs or paths relative to the gateway origin.
type Manifest struct {
	Assets []string
}

// Resolve turns every asset into an absolute URL against origin.
func (m Manifest) Resolve(origin *url.URL) ([]*url.URL, error) {
	result := make([]*url.URL, 0, len(m.Assets))
	seen := make(map[string]bool, len(m.Assets))
	for _, asset := range m.Assets {
		ref, err := url.Parse(asset)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %q: %w", asset, err)
		}
		resolved := origin.ResolveReference(ref)
		if seen[resolved.String()] {
			continue
		}
		seen[resolved.String()] = true
		result = append(result, resolved)
	}
	return result, nil
}

// Names derives the versioned partition names. A deploy with a new Version gets fresh partitions
// and orphans the old ones.
type Names struct {
	Prefix  string
	Version string
}

func (n Names) Static() string {
	return n.Prefix + "-static-" + n.Version
}

func (n Names) Dynamic() string {
	return n.Prefix + "-dynamic-" + n.Version
}

// Current reports whether partition is one of the current version's partitions.
func (n Names) Current(partition string) bool {
	return partition == n.Static() || partition == n.Dynamic()
}
