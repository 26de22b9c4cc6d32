package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/cache"
	"github.com/terrycain/offline-cache-gateway/pkg/clients"
	"github.com/terrycain/offline-cache-gateway/pkg/commands"
	"github.com/terrycain/offline-cache-gateway/pkg/dashboard"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/notify"
	"github.com/terrycain/offline-cache-gateway/pkg/router"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
	"github.com/terrycain/offline-cache-gateway/pkg/syncqueue"
)

type Handlers struct {
	Gateway   http.RoundTripper
	Router    *router.Router
	Store     *cache.Store
	Lifecycle *cache.Lifecycle

	Queue   *syncqueue.Queue
	Syncer  *syncqueue.Syncer
	Watcher *syncqueue.Watcher

	Notifier *notify.Dispatcher
	Clients  *clients.Registry

	Controller *dashboard.Controller
	Commands   *commands.Dispatcher

	// Auth protects the lifecycle, sync and push routes. Nil disables it.
	Auth *Authenticator
}

type StatusResponse struct {
	State          cache.State   `json:"state"`
	Error          string        `json:"error,omitempty"`
	Version        string        `json:"version"`
	Online         bool          `json:"online"`
	Partitions     []s.Partition `json:"partitions"`
	PendingUploads int           `json:"pendingUploads"`
}

func (h *Handlers) Status(c *gin.Context) {
	state, lastErr := h.Lifecycle.State()
	resp := StatusResponse{State: state, Version: h.Lifecycle.Version()}
	if lastErr != nil {
		resp.Error = lastErr.Error()
	}
	if h.Watcher != nil {
		resp.Online = h.Watcher.Online()
	}

	partitions, err := h.Store.Partitions()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list partitions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list partitions"})
		return
	}
	resp.Partitions = partitions

	pending, err := h.Queue.Pending()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending uploads"})
		return
	}
	resp.PendingUploads = len(pending)

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) Install(c *gin.Context) {
	if err := h.Lifecycle.Install(c.Request.Context()); err != nil {
		if errors.Is(err, e.ErrInstallFailure) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		} else {
			log.Error().Err(err).Msg("Failed to install")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to install"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": cache.StateInstalled, "version": h.Lifecycle.Version()})
}

func (h *Handlers) Activate(c *gin.Context) {
	deleted, err := h.Lifecycle.Activate(c.Request.Context())
	if err != nil {
		if errors.Is(err, e.ErrPartitionNotReady) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			log.Error().Err(err).Msg("Failed to activate")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": cache.StateActivated, "version": h.Lifecycle.Version(), "deleted": deleted})
}

func (h *Handlers) Sync(c *gin.Context) {
	tag := c.Param("tag")
	err := h.Syncer.Trigger(c.Request.Context(), tag)
	if errors.Is(err, e.ErrUnknownSyncTag) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	pending, err2 := h.Queue.Pending()
	if err2 != nil {
		log.Error().Err(err2).Msg("Failed to list pending uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending uploads"})
		return
	}

	if err != nil {
		// Undelivered records stay queued for the next trigger
		c.JSON(http.StatusAccepted, gin.H{"tag": tag, "pending": len(pending), "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag, "pending": len(pending)})
}
