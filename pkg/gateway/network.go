package gateway

import (
	"net"
	"net/http"
	"time"
)

const UserAgent = "offline-cache-gateway/1.0"

// Network is the live transport used for every fetch the gateway makes.
type Network struct {
	Transport http.RoundTripper
}

func NewNetwork(timeout time.Duration) *Network {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Network{Transport: transport}
}

func (n *Network) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return n.Transport.RoundTrip(req)
}
