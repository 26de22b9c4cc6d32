package syncqueue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/metrics"
)

const (
	TagUploads = "sync-uploads"
	TagAlerts  = "sync-alerts"

	AlertsSyncPath = "/api/alerts/sync"
)

var Tags = []string{TagUploads, TagAlerts}

// AlertsSync asks upstream to reconcile alerts. It holds no local state.
type AlertsSync struct {
	Network http.RoundTripper
	Origin  *url.URL
}

func (a *AlertsSync) Sync(ctx context.Context) error {
	target := a.Origin.ResolveReference(&url.URL{Path: AlertsSyncPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), http.NoBody)
	if err != nil {
		return err
	}

	resp, err := a.Network.RoundTrip(req)
	if err != nil {
		metrics.SyncAttempts.WithLabelValues(TagAlerts, "failure").Inc()
		return fmt.Errorf("%w: %w", e.ErrNetwork, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SyncAttempts.WithLabelValues(TagAlerts, "failure").Inc()
		return fmt.Errorf("%w: alerts sync status %d", e.ErrUploadRejected, resp.StatusCode)
	}
	metrics.SyncAttempts.WithLabelValues(TagAlerts, "success").Inc()
	return nil
}

// Syncer maps sync tags to the work they trigger.
type Syncer struct {
	Queue  *Queue
	Alerts *AlertsSync
}

// Trigger runs the sync registered for tag. Alerts sync is fire-and-forget so its failure is
// only logged.
func (s *Syncer) Trigger(ctx context.Context, tag string) error {
	switch tag {
	case TagUploads:
		_, err := s.Queue.Drain(ctx)
		return err
	case TagAlerts:
		if err := s.Alerts.Sync(ctx); err != nil {
			logger.Warn().Err(err).Msg("Alerts sync failed")
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", e.ErrUnknownSyncTag, tag)
	}
}

// TriggerAll fires every tag, returning the first error.
func (s *Syncer) TriggerAll(ctx context.Context) error {
	var firstErr error
	for _, tag := range Tags {
		if err := s.Trigger(ctx, tag); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
