package web

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/dashboard"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

// writeBinary answers with upstream bytes fetched through the gateway, mapping fetch failures
// to a status the browser can show.
func writeBinary(c *gin.Context, body []byte, contentType string, err error) {
	if err != nil {
		var statusErr *dashboard.StatusError
		switch {
		case errors.As(err, &statusErr):
			c.JSON(statusErr.Status, gin.H{"error": statusErr.Error()})
		case errors.Is(err, e.ErrNetwork):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream unreachable and no cached copy"})
		default:
			log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("Binary fetch failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream request failed"})
		}
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, body)
}

func (h *Handlers) CameraSnapshot(c *gin.Context) {
	body, contentType, err := h.Controller.Client.Snapshot(c.Request.Context(), c.Param("id"))
	writeBinary(c, body, contentType, err)
}

func (h *Handlers) DownloadReport(c *gin.Context) {
	body, contentType, err := h.Controller.Client.DownloadReport(c.Request.Context(), c.Param("id"))
	if err == nil {
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "report-" + c.Param("id")}))
	}
	writeBinary(c, body, contentType, err)
}
