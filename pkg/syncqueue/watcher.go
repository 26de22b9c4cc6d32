package syncqueue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const HealthPath = "/api/health"

// Watcher probes the upstream health endpoint and calls OnOnline whenever connectivity comes
// back after an outage.
type Watcher struct {
	Network  http.RoundTripper
	Origin   *url.URL
	Interval time.Duration
	OnOnline func(ctx context.Context)

	// MaxBackoff caps the delay between probes while offline.
	MaxBackoff time.Duration

	online int32
}

func (w *Watcher) Online() bool {
	return atomic.LoadInt32(&w.online) == 1
}

func (w *Watcher) Probe(ctx context.Context) error {
	target := w.Origin.ResolveReference(&url.URL{Path: HealthPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := w.Network.RoundTrip(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func (w *Watcher) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 0
	if w.MaxBackoff > 0 {
		b.MaxInterval = w.MaxBackoff
		if b.InitialInterval > b.MaxInterval {
			b.InitialInterval = b.MaxInterval
		}
	}
	return backoff.WithContext(b, ctx)
}

// Check runs one probe and, while offline, keeps retrying with exponential backoff until upstream
// answers or ctx is done. The offline to online edge fires OnOnline.
func (w *Watcher) Check(ctx context.Context) error {
	err := w.Probe(ctx)
	if err != nil {
		if atomic.SwapInt32(&w.online, 0) == 1 {
			logger.Warn().Err(err).Msg("Upstream unreachable, going offline")
		}
		notify := func(err error, next time.Duration) {
			logger.Debug().Err(err).Dur("next", next).Msg("Upstream still unreachable")
		}
		if err = backoff.RetryNotify(func() error { return w.Probe(ctx) }, w.newBackOff(ctx), notify); err != nil {
			return err
		}
	}

	if atomic.SwapInt32(&w.online, 1) == 0 {
		logger.Info().Msg("Upstream reachable, triggering sync")
		if w.OnOnline != nil {
			w.OnOnline(ctx)
		}
	}
	return nil
}

// Run checks connectivity every Interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Check(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Connectivity check failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
