// Package syncqueue keeps user uploads that could not be delivered and replays them, in order,
// once the upstream API is reachable again.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/terrycain/offline-cache-gateway/pkg/database"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/metrics"
	"github.com/terrycain/offline-cache-gateway/pkg/s"
	"github.com/terrycain/offline-cache-gateway/pkg/storage"
	"github.com/terrycain/offline-cache-gateway/pkg/utils"
	"github.com/terrycain/offline-cache-gateway/pkg/utils/logging"
)

const (
	UploadPath      = "/api/videos/upload"
	UploadFileField = "video"

	DefaultMaxUploadSize = 500 * 1024 * 1024
)

var AllowedExtensions = []string{"mp4", "avi", "mov", "mkv", "flv", "wmv"}

var logger = logging.Component("syncqueue")

// Queue is the durable pending upload queue. Records and payloads are persisted before anything
// is sent, so a crash never loses an accepted upload.
type Queue struct {
	Database database.Backend
	Storage  storage.Backend
	Network  http.RoundTripper
	Origin   *url.URL

	MaxUploadSize int64

	mu       sync.Mutex
	inFlight map[int64]bool
}

func NewQueue(db database.Backend, st storage.Backend, network http.RoundTripper, origin *url.URL) *Queue {
	return &Queue{
		Database:      db,
		Storage:       st,
		Network:       network,
		Origin:        origin,
		MaxUploadSize: DefaultMaxUploadSize,
		inFlight:      make(map[int64]bool),
	}
}

// ValidateFilename checks the name has one of the accepted video extensions.
func ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: no file selected", e.ErrInvalidUpload)
	}
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" || !utils.ContainsFold(AllowedExtensions, ext) {
		return fmt.Errorf("%w: invalid file type, allowed: %s", e.ErrInvalidUpload, strings.Join(AllowedExtensions, ", "))
	}
	return nil
}

// Enqueue persists the payload and then the record. The id returned identifies the record until
// it is delivered.
func (q *Queue) Enqueue(ctx context.Context, filename, contentType string, body io.Reader, metadata map[string]string) (int64, error) {
	if err := ValidateFilename(filename); err != nil {
		return -1, err
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}

	limit := q.MaxUploadSize
	if limit <= 0 {
		limit = DefaultMaxUploadSize
	}
	blobPath, size, err := q.Storage.Write(storage.UploadsNamespace, io.LimitReader(body, limit+1))
	if err != nil {
		return -1, pkgerrors.Wrap(err, "write upload payload")
	}
	if size > limit {
		_ = q.Storage.Delete(storage.UploadsNamespace, blobPath)
		return -1, fmt.Errorf("%w: file exceeds %d bytes", e.ErrInvalidUpload, limit)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	id, err := q.Database.AddUpload(s.PendingUpload{
		Filename:           path.Base(filename),
		ContentType:        contentType,
		Metadata:           metadata,
		Size:               size,
		StorageBackendType: q.Storage.Type(),
		StorageBackendPath: blobPath,
	})
	if err != nil {
		_ = q.Storage.Delete(storage.UploadsNamespace, blobPath)
		return -1, err
	}
	q.updateGauge()

	logger.Info().Int64("upload_id", id).Str("filename", filename).Int64("size", size).Msg("Queued upload")
	return id, nil
}

// Pending lists the records still waiting for delivery, oldest first.
func (q *Queue) Pending() ([]s.PendingUpload, error) {
	uploads, err := q.Database.ListUploads()
	if err != nil {
		return nil, err
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].ID < uploads[j].ID })
	return uploads, nil
}

// State reports where a record is in its lifecycle. A record no longer in the database has been
// delivered.
func (q *Queue) State(id int64) (s.UploadState, error) {
	q.mu.Lock()
	inFlight := q.inFlight[id]
	q.mu.Unlock()
	if inFlight {
		return s.UploadInFlight, nil
	}

	_, err := q.Database.GetUpload(id)
	if err == nil {
		return s.UploadPending, nil
	}
	if errors.Is(err, e.ErrNotFound) {
		return s.UploadDelivered, nil
	}
	return "", err
}

func (q *Queue) claim(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight[id] {
		return false
	}
	q.inFlight[id] = true
	return true
}

func (q *Queue) release(id int64) {
	q.mu.Lock()
	delete(q.inFlight, id)
	q.mu.Unlock()
}

// Drain delivers every pending record in ascending id order, one at a time. A failed record goes
// back to pending with its attempt recorded while the rest are still tried. Records another drain
// is already sending are skipped.
func (q *Queue) Drain(ctx context.Context) (int, error) {
	uploads, err := q.Pending()
	if err != nil {
		return 0, err
	}

	delivered := 0
	var firstErr error
	for _, upload := range uploads {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}

		sent, err2 := q.deliver(ctx, upload)
		if errors.Is(err2, e.ErrUploadInFlight) {
			continue
		}
		if err2 != nil {
			if firstErr == nil {
				firstErr = err2
			}
			continue
		}
		if sent {
			delivered++
		}
	}

	logger.Info().Int("delivered", delivered).Int("pending", len(uploads)-delivered).Msg("Drained upload queue")
	return delivered, firstErr
}

// Deliver sends one record. On success the record and its payload are removed, on failure the
// attempt is recorded and the record stays pending. A record already delivered by another drain
// is not an error.
func (q *Queue) Deliver(ctx context.Context, upload s.PendingUpload) error {
	_, err := q.deliver(ctx, upload)
	return err
}

// deliver reports whether this call sent the record.
func (q *Queue) deliver(ctx context.Context, upload s.PendingUpload) (bool, error) {
	if !q.claim(upload.ID) {
		return false, e.ErrUploadInFlight
	}
	defer q.release(upload.ID)

	// The caller's copy may predate a delivery that finished after it was listed
	current, err := q.Database.GetUpload(upload.ID)
	if errors.Is(err, e.ErrNotFound) {
		logger.Debug().Int64("upload_id", upload.ID).Msg("Upload already delivered")
		return false, nil
	} else if err != nil {
		return false, err
	}
	upload = current

	if err = q.send(ctx, upload); err != nil {
		metrics.SyncAttempts.WithLabelValues(TagUploads, "failure").Inc()
		logger.Warn().Err(err).Int64("upload_id", upload.ID).Msg("Upload delivery failed")
		if err2 := q.Database.MarkUploadAttempt(upload.ID, err.Error()); err2 != nil {
			logger.Error().Err(err2).Int64("upload_id", upload.ID).Msg("Failed to record upload attempt")
		}
		return false, err
	}

	metrics.SyncAttempts.WithLabelValues(TagUploads, "success").Inc()
	if err = q.Database.DeleteUpload(upload.ID); err != nil && !errors.Is(err, e.ErrNotFound) {
		return true, err
	}
	if upload.StorageBackendType == q.Storage.Type() {
		if err = q.Storage.Delete(storage.UploadsNamespace, upload.StorageBackendPath); err != nil {
			logger.Warn().Err(err).Int64("upload_id", upload.ID).Msg("Failed to delete delivered payload")
		}
	}
	q.updateGauge()

	logger.Info().Int64("upload_id", upload.ID).Str("filename", upload.Filename).Msg("Delivered upload")
	return true, nil
}

// Submit is the live path for a new upload: persist it, then try to deliver it straight away.
// A failed delivery leaves the record queued and is not an error.
func (q *Queue) Submit(ctx context.Context, filename, contentType string, body io.Reader, metadata map[string]string) (int64, bool, error) {
	id, err := q.Enqueue(ctx, filename, contentType, body, metadata)
	if err != nil {
		return -1, false, err
	}
	if err = q.Deliver(ctx, s.PendingUpload{ID: id}); err != nil {
		return id, false, nil
	}
	return id, true, nil
}

func (q *Queue) send(ctx context.Context, upload s.PendingUpload) error {
	if upload.StorageBackendType != q.Storage.Type() {
		return fmt.Errorf("%w: payload stored by %s backend", e.ErrNotFound, upload.StorageBackendType)
	}
	payload, err := q.Storage.Read(storage.UploadsNamespace, upload.StorageBackendPath)
	if err != nil {
		return pkgerrors.Wrap(err, "read upload payload")
	}

	// The body is streamed so a large payload is never held in memory
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		defer payload.Close()
		pw.CloseWithError(writeUploadForm(writer, upload, payload))
	}()
	defer pr.Close()

	target := q.Origin.ResolveReference(&url.URL{Path: UploadPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := q.Network.RoundTrip(req)
	if err != nil {
		return fmt.Errorf("%w: %w", e.ErrNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", e.ErrUploadRejected, resp.StatusCode)
	}
	return nil
}

// writeUploadForm writes the metadata fields, sorted by name, then the file part.
func writeUploadForm(writer *multipart.Writer, upload s.PendingUpload, payload io.Reader) error {
	keys := make([]string, 0, len(upload.Metadata))
	for key := range upload.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, upload.Metadata[key]); err != nil {
			return err
		}
	}

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadFileField, upload.Filename))
	partHeader.Set("Content-Type", upload.ContentType)
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return err
	}
	if _, err = io.Copy(part, payload); err != nil {
		return pkgerrors.Wrap(err, "copy upload payload")
	}
	return writer.Close()
}

func (q *Queue) updateGauge() {
	uploads, err := q.Database.ListUploads()
	if err != nil {
		return
	}
	metrics.PendingUploads.Set(float64(len(uploads)))
}
