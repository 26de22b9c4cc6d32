package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// forward sends the incoming request to target through the gateway and streams the answer back.
func (h *Handlers) forward(c *gin.Context, target *url.URL) {
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target.String(), c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Header = c.Request.Header.Clone()
	for _, hdr := range hopHeaders {
		req.Header.Del(hdr)
	}
	req.Header.Del("Authorization")
	req.ContentLength = c.Request.ContentLength

	resp, err := h.Gateway.RoundTrip(req)
	if err != nil {
		if errors.Is(err, e.ErrNetwork) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream unreachable and no cached copy"})
		} else {
			log.Warn().Err(err).Str("url", target.String()).Msg("Proxy request failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
		}
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if containsHeader(hopHeaders, key) {
			continue
		}
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}
	c.Status(resp.StatusCode)
	if _, err = io.Copy(c.Writer, resp.Body); err != nil {
		log.Debug().Err(err).Str("url", target.String()).Msg("Client went away while copying response")
	}
}

func containsHeader(headers []string, key string) bool {
	for _, hdr := range headers {
		if strings.EqualFold(hdr, key) {
			return true
		}
	}
	return false
}

// Proxy serves every unmatched path from the upstream origin.
func (h *Handlers) Proxy(c *gin.Context) {
	target := h.Router.Origin.ResolveReference(&url.URL{Path: c.Request.URL.Path, RawQuery: c.Request.URL.RawQuery})
	h.forward(c, target)
}

// External serves assets from the trusted third-party hosts only, the gateway is not an open proxy.
func (h *Handlers) External(c *gin.Context) {
	target := &url.URL{Scheme: "https", Host: c.Param("host"), Path: c.Param("path"), RawQuery: c.Request.URL.RawQuery}
	if !h.Router.Trusted(target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "host not allowed"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		return
	}
	h.forward(c, target)
}
