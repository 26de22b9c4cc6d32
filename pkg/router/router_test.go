package router

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	origin, _ := url.Parse("http://dashboard.local:5000")
	r := New(origin, DefaultTrustedHosts, "")

	tables := []struct {
		name     string
		url      string
		expected Route
	}{
		{"same origin asset", "http://dashboard.local:5000/css/styles.css", RouteCacheFirst},
		{"same origin root", "http://dashboard.local:5000/", RouteCacheFirst},
		{"same origin api", "http://dashboard.local:5000/api/cameras", RouteNetworkFirst},
		{"api with query", "http://dashboard.local:5000/api/alerts?limit=10", RouteNetworkFirst},
		{"trusted font host", "https://fonts.googleapis.com/css2?family=Inter", RouteCacheFirst},
		{"trusted library host", "https://cdnjs.cloudflare.com/ajax/libs/Chart.js/4.4.0/chart.umd.min.js", RouteCacheFirst},
		{"trusted host api-looking path", "https://cdnjs.cloudflare.com/api/x", RouteNetworkFirst},
		{"untrusted cross origin", "https://evil.example.com/js/app.js", RoutePassThrough},
		{"untrusted cross origin api", "https://evil.example.com/api/cameras", RoutePassThrough},
		{"different port is cross origin", "http://dashboard.local:8080/js/app.js", RoutePassThrough},
		{"different scheme is cross origin", "https://dashboard.local:5000/js/app.js", RoutePassThrough},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			u, err := url.Parse(table.url)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(table.expected.String(), r.Classify(u).String()); diff != "" {
				t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
