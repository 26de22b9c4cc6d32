package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/syncqueue"
)

type UploadResponse struct {
	ID        int64 `json:"id"`
	Delivered bool  `json:"delivered"`
	Queued    bool  `json:"queued"`
}

// Upload accepts a video, tries to deliver it straight away and queues it when that fails.
func (h *Handlers) Upload(c *gin.Context) {
	file, err := c.FormFile(syncqueue.UploadFileField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no video file provided"})
		return
	}
	if err = syncqueue.ValidateFilename(file.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metadata := make(map[string]string)
	if form, err2 := c.MultipartForm(); err2 == nil {
		for key, values := range form.Value {
			if len(values) > 0 {
				metadata[key] = values[0]
			}
		}
	}

	f, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})
		return
	}
	defer f.Close()

	id, delivered, err := h.Queue.Submit(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), f, metadata)
	if err != nil {
		if errors.Is(err, e.ErrInvalidUpload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			log.Error().Err(err).Msg("Failed to queue upload")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue upload"})
		}
		return
	}

	status := http.StatusOK
	if !delivered {
		status = http.StatusAccepted
	}
	c.JSON(status, UploadResponse{ID: id, Delivered: delivered, Queued: !delivered})
}

func (h *Handlers) PendingUploads(c *gin.Context) {
	uploads, err := h.Queue.Pending()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list pending uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending uploads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads})
}
