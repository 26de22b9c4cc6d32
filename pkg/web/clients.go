package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
)

type RegisterRequest struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// RegisterClient both registers new windows and serves as their heartbeat.
func (h *Handlers) RegisterClient(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.URL == "" {
		req.URL = "/"
	}

	if strings.HasPrefix(req.URL, "/") {
		req.URL = RequestOrigin(c) + req.URL
	}
	window := h.Clients.Register(req.ID, req.URL)
	c.JSON(http.StatusOK, window)
}

func (h *Handlers) ListClients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clients": h.Clients.MatchAll()})
}

func (h *Handlers) ClientCommands(c *gin.Context) {
	commands, err := h.Clients.Poll(c.Param("id"))
	if err != nil {
		if errors.Is(err, e.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not registered"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": commands})
}

func (h *Handlers) UnregisterClient(c *gin.Context) {
	if err := h.Clients.Unregister(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not registered"})
		return
	}
	c.Status(http.StatusNoContent)
}
