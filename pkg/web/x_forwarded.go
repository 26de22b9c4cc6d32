package web

import "github.com/gin-gonic/gin"

func XForwardedProto(defaultScheme string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hdr := c.GetHeader("X-Forwarded-Proto"); hdr != "" {
			c.Request.URL.Scheme = hdr
		} else {
			c.Request.URL.Scheme = defaultScheme
		}
		if hdr := c.GetHeader("X-Forwarded-Host"); hdr != "" {
			c.Request.URL.Host = hdr
		} else {
			c.Request.URL.Host = c.Request.Host
		}

		c.Next()
	}
}

// RequestOrigin is the scheme and host the caller used to reach the gateway.
func RequestOrigin(c *gin.Context) string {
	if c.Request.URL.Scheme == "" || c.Request.URL.Host == "" {
		return ""
	}
	return c.Request.URL.Scheme + "://" + c.Request.URL.Host
}
