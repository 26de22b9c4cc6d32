package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/e"
	"github.com/terrycain/offline-cache-gateway/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

const defaultInstallConcurrency = 4

// Claimer takes control of the already open application windows for a version.
type Claimer interface {
	Claim(version string) int
}

// Manager owns creation, population and garbage collection of the partitions.
type Manager struct {
	Store    *Store
	Network  http.RoundTripper
	Origin   *url.URL
	Manifest Manifest
	Names    Names
	Clients  Claimer

	InstallConcurrency int
}

// Install populates the static partition with every manifest asset. Any single failure fails the
// whole install and removes the partition so nothing partial can be activated. An already ready
// static partition for the current version is left as is.
func (m *Manager) Install(ctx context.Context) error {
	name := m.Names.Static()

	if p, err := m.Store.Database.GetPartition(name); err == nil && p.Ready {
		log.Info().Str("partition", name).Msg("Static partition already installed")
		return nil
	} else if err != nil && !errors.Is(err, e.ErrNotFound) {
		return err
	}

	assets, err := m.Manifest.Resolve(m.Origin)
	if err != nil {
		return fmt.Errorf("%w: %w", e.ErrInstallFailure, err)
	}

	if err = m.Store.Open(name); err != nil {
		return err
	}
	if err = m.Store.Database.SetPartitionReady(name, false); err != nil {
		return err
	}

	log.Info().Str("partition", name).Int("assets", len(assets)).Msg("Installing static assets")

	concurrency := m.InstallConcurrency
	if concurrency <= 0 {
		concurrency = defaultInstallConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			if err2 := m.installAsset(gctx, name, asset); err2 != nil {
				return fmt.Errorf("%s: %w", asset.String(), err2)
			}
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		metrics.LifecycleEvents.WithLabelValues("install", "failure").Inc()
		log.Error().Err(err).Str("partition", name).Msg("Static install failed, discarding partition")
		if err2 := m.Store.DeletePartition(name); err2 != nil {
			log.Error().Err(err2).Str("partition", name).Msg("Failed to discard partial static partition")
		}
		return fmt.Errorf("%w: %w", e.ErrInstallFailure, err)
	}

	if err = m.Store.Database.SetPartitionReady(name, true); err != nil {
		return err
	}
	metrics.LifecycleEvents.WithLabelValues("install", "success").Inc()
	log.Info().Str("partition", name).Msg("Static assets installed")

	return nil
}

func (m *Manager) installAsset(ctx context.Context, partition string, asset *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.String(), nil)
	if err != nil {
		return err
	}

	resp, err := m.Network.RoundTrip(req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	resp, err = m.Store.Put(partition, req, resp)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return err
}

// Activate deletes every partition that does not belong to the current version and then claims
// the open clients. It refuses to run while the current static partition is not ready.
func (m *Manager) Activate(ctx context.Context) ([]string, error) {
	static, err := m.Store.Database.GetPartition(m.Names.Static())
	if errors.Is(err, e.ErrNotFound) || (err == nil && !static.Ready) {
		return nil, e.ErrPartitionNotReady
	} else if err != nil {
		return nil, err
	}

	partitions, err := m.Store.Partitions()
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0)
	var firstErr error
	for _, p := range partitions {
		if m.Names.Current(p.Name) {
			continue
		}
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		log.Info().Str("partition", p.Name).Msg("Deleting old partition")
		if err = m.Store.DeletePartition(p.Name); err != nil {
			log.Error().Err(err).Str("partition", p.Name).Msg("Failed to delete old partition")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted = append(deleted, p.Name)
	}
	if firstErr != nil {
		return deleted, firstErr
	}

	if err = m.Store.Open(m.Names.Dynamic()); err != nil {
		return deleted, err
	}
	if err = m.Store.Database.SetPartitionReady(m.Names.Dynamic(), true); err != nil {
		return deleted, err
	}

	claimed := 0
	if m.Clients != nil {
		claimed = m.Clients.Claim(m.Names.Version)
	}
	metrics.LifecycleEvents.WithLabelValues("activate", "success").Inc()
	log.Info().Str("version", m.Names.Version).Strs("deleted", deleted).Int("claimed", claimed).Msg("Activated")

	return deleted, nil
}
