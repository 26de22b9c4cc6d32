package main

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/cache"
	"github.com/terrycain/offline-cache-gateway/pkg/clients"
	"github.com/terrycain/offline-cache-gateway/pkg/commands"
	"github.com/terrycain/offline-cache-gateway/pkg/dashboard"
	"github.com/terrycain/offline-cache-gateway/pkg/database"
	"github.com/terrycain/offline-cache-gateway/pkg/gateway"
	"github.com/terrycain/offline-cache-gateway/pkg/notify"
	"github.com/terrycain/offline-cache-gateway/pkg/router"
	"github.com/terrycain/offline-cache-gateway/pkg/storage"
	"github.com/terrycain/offline-cache-gateway/pkg/syncqueue"
	"github.com/terrycain/offline-cache-gateway/pkg/utils/logging"
	"github.com/terrycain/offline-cache-gateway/pkg/web"
)

const clientMaxAge = 10 * time.Minute

var cli struct {
	// Upstream
	Origin       string   `env:"ORIGIN" required:"" help:"Upstream application origin e.g. https://security.example.com"`
	TrustedHosts []string `env:"TRUSTED_HOSTS" default:"fonts.googleapis.com,cdnjs.cloudflare.com" help:"Third-party hosts treated as cache-first"`
	APIMarker    string   `env:"API_MARKER" default:"/api/" help:"Path marker of network-first API requests"`

	// Cache
	CachePrefix  string   `env:"CACHE_PREFIX" default:"sentinel" help:"Partition name prefix"`
	CacheVersion string   `env:"CACHE_VERSION" default:"v1" help:"Partition version, bump on every deploy"`
	Manifest     []string `env:"MANIFEST" help:"Static assets to install, defaults to the built in list"`

	// Database backends
	DBSqlite   string `env:"DB_SQLITE" required:"" xor:"db" help:"SQLite filepath e.g. /tmp/db.sqlite"`
	DBPostgres string `env:"DB_POSTGRES" required:"" xor:"db" help:"Postgres URI e.g. postgresql://blah"`

	// Storage backends
	StorageDisk      string `env:"STORAGE_DISK" required:"" xor:"storage" help:"Use disk storage for cache data e.g. /tmp/cache"`
	StorageS3        string `env:"STORAGE_S3" required:"" xor:"storage" name:"storage-s3" help:"Use S3 storage for cache data e.g. s3://bucket"`
	StorageAzureBlob string `env:"STORAGE_AZUREBLOB" required:"" xor:"storage" help:"Use Azure blob storage for cache data e.g. DefaultEndpointsProtocol=...;Container=cache"`

	// Sync
	WatchInterval time.Duration `env:"WATCH_INTERVAL" default:"30s" help:"Connectivity check interval"`
	MaxBackoff    time.Duration `env:"MAX_BACKOFF" default:"5m" help:"Maximum delay between probes while offline"`
	MaxUploadSize int64         `env:"MAX_UPLOAD_SIZE" default:"524288000" help:"Maximum queued upload size in bytes"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" default:"15s" help:"Network dial and response header timeout"`

	// Auth for the admin routes
	AuthIssuer string `env:"AUTH_ISSUER" help:"OIDC issuer whose discovery document lists the signing keys"`
	AuthJWKS   string `env:"AUTH_JWKS_URL" help:"JWKS URL, overrides discovery"`
	AuthScope  string `env:"AUTH_SCOPE" help:"Scope required on admin tokens"`

	// Misc
	NoNotifications      bool   `env:"NO_NOTIFICATIONS" help:"Drop push notifications instead of showing them"`
	LogLevel             string `env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
	LogConsole           bool   `env:"LOG_CONSOLE" help:"Human readable log output"`
	ListenAddress        string `env:"LISTEN_ADDR" default:"0.0.0.0:8080" help:"Listen address e.g. 0.0.0.0:8080"`
	MetricsListenAddress string `env:"METRICS_LISTEN_ADDR" default:"0.0.0.0:9102" help:"Listen address for prometheus metrics e.g. 0.0.0.0:9102"`
	Debug                bool   `env:"DEBUG" help:"Enable debug mode, skips token expiry checks"`
}

func main() {
	kong.Parse(&cli)

	logging.SetupLogging(cli.LogLevel, cli.LogConsole)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	origin, err := url.Parse(cli.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		log.Fatal().Err(err).Str("origin", cli.Origin).Msg("Invalid origin")
	}

	var databaseBackendName, dbConnectionString string
	if cli.DBSqlite != "" {
		databaseBackendName = "sqlite"
		dbConnectionString = cli.DBSqlite
	}
	if cli.DBPostgres != "" {
		databaseBackendName = "postgres"
		dbConnectionString = cli.DBPostgres
	}

	var storageBackendName, storageConnectionString string
	if cli.StorageDisk != "" {
		storageBackendName = "disk"
		storageConnectionString = cli.StorageDisk
	}
	if cli.StorageS3 != "" {
		storageBackendName = "s3"
		storageConnectionString = cli.StorageS3
	}
	if cli.StorageAzureBlob != "" {
		storageBackendName = "azureblob"
		storageConnectionString = cli.StorageAzureBlob
	}

	dbBackend, err := database.GetBackend(databaseBackendName, dbConnectionString)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initiate database backend")
	}

	storageBackend, err := storage.GetStorageBackend(storageBackendName, storageConnectionString)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initiate storage backend")
	}

	network := gateway.NewNetwork(cli.FetchTimeout)
	store := cache.NewStore(dbBackend, storageBackend)
	names := cache.Names{Prefix: cli.CachePrefix, Version: cli.CacheVersion}
	rt := router.New(origin, cli.TrustedHosts, cli.APIMarker)
	gw := gateway.New(rt, store, names, network)
	registry := clients.NewRegistry()

	manifest := cache.Manifest{Assets: cache.DefaultAssets}
	if len(cli.Manifest) > 0 {
		manifest.Assets = cli.Manifest
	}
	lifecycle := cache.NewLifecycle(&cache.Manager{
		Store:    store,
		Network:  network,
		Origin:   origin,
		Manifest: manifest,
		Names:    names,
		Clients:  registry,
	})

	queue := syncqueue.NewQueue(dbBackend, storageBackend, network, origin)
	queue.MaxUploadSize = cli.MaxUploadSize
	syncer := &syncqueue.Syncer{Queue: queue, Alerts: &syncqueue.AlertsSync{Network: network, Origin: origin}}
	watcher := &syncqueue.Watcher{
		Network:    network,
		Origin:     origin,
		Interval:   cli.WatchInterval,
		MaxBackoff: cli.MaxBackoff,
		OnOnline: func(ctx context.Context) {
			if err2 := syncer.TriggerAll(ctx); err2 != nil {
				log.Warn().Err(err2).Msg("Sync after reconnect incomplete")
			}
		},
	}

	controller := dashboard.NewController(dashboard.NewClient(origin, gw))

	handlers := &web.Handlers{
		Gateway:    gw,
		Router:     rt,
		Store:      store,
		Lifecycle:  lifecycle,
		Queue:      queue,
		Syncer:     syncer,
		Watcher:    watcher,
		Notifier:   notify.NewDispatcher(notify.NewCenter(), registry, !cli.NoNotifications),
		Clients:    registry,
		Controller: controller,
		Commands:   commands.NewDispatcher(controller),
	}
	if cli.AuthIssuer != "" || cli.AuthJWKS != "" {
		handlers.Auth = &web.Authenticator{
			Keys:                 web.NewKeySource(ctx, cli.AuthIssuer, cli.AuthJWKS),
			RequiredScope:        cli.AuthScope,
			SkipClaimsValidation: cli.Debug,
		}
	} else {
		log.Warn().Msg("No auth issuer or JWKS configured, admin routes are unauthenticated")
	}

	go func() {
		if err2 := lifecycle.Start(ctx); err2 != nil {
			log.Error().Err(err2).Msg("Cache lifecycle did not complete, retry with POST /_gateway/install")
		}
	}()
	go watcher.Run(ctx)
	go func() {
		ticker := time.NewTicker(clientMaxAge)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				registry.Prune(clientMaxAge)
			}
		}
	}()

	engine := web.GetRouter(cli.MetricsListenAddress, handlers, true)

	log.Info().Str("origin", origin.String()).Str("version", cli.CacheVersion).Msgf("Listening on %s", cli.ListenAddress)
	if err = engine.Run(cli.ListenAddress); err != nil {
		log.Fatal().Err(err).Msg("Failed HTTP server loop")
	}
}
