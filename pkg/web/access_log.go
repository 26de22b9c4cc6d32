package web

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/gateway"
)

// GinLogger writes one access log line per request. Window command polling is only logged at
// debug level as it runs every few seconds per open window.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if path == "/healthz" || path == "/metrics" {
			return
		}

		latency := time.Since(t)
		if raw != "" {
			path = path + "?" + raw
		}
		msg := c.Errors.String()
		if msg == "" {
			msg = "Request"
		}

		statusCode := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = log.Error()
		case statusCode >= 400:
			event = log.Warn()
		case strings.HasSuffix(c.FullPath(), "/commands") && c.Request.Method == "GET":
			event = log.Debug()
		default:
			event = log.Info()
		}

		event.Str("logger", "access").Str("method", c.Request.Method).
			Str("path", path).Dur("resp_time", latency).Int("status", statusCode).
			Str("source", c.Writer.Header().Get(gateway.HeaderSource)).
			Str("client_ip", c.ClientIP()).Str("user_agent", c.Request.Header.Get("User-Agent")).Msg(msg)
	}
}
