package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/notify"
)

const maxPushPayload = 64 * 1024

func (h *Handlers) Push(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPushPayload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	n, err := h.Notifier.Push(payload)
	if errors.Is(err, e.ErrNotificationsOff) {
		c.JSON(http.StatusOK, gin.H{"shown": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shown": true, "notification": n})
}

func (h *Handlers) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.Notifier.Center.List()})
}

type ClickRequest struct {
	Action string `json:"action" form:"action"`
}

func (h *Handlers) ClickNotification(c *gin.Context) {
	var req ClickRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Action == "" {
		req.Action = notify.ActionDismiss
	}

	result, err := h.Notifier.Click(c.Param("tag"), req.Action)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
