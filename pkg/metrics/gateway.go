package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// CacheLookups counts partition lookups by partition kind (static, dynamic) and result (hit, miss).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_cache_lookups_total",
		Help: "Partition lookups partitioned by partition kind and result",
	}, []string{"partition", "result"})

	// Routes counts routing decisions.
	Routes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_routes_total",
		Help: "Requests classified by the router, partitioned by route",
	}, []string{"route"})

	// Fallbacks counts failure paths taken by the fetch strategies.
	Fallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_fallbacks_total",
		Help: "Fallback responses served, partitioned by strategy and kind",
	}, []string{"strategy", "kind"})

	LifecycleEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_lifecycle_events_total",
		Help: "Install and activate outcomes",
	}, []string{"event", "result"})

	SyncAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_sync_attempts_total",
		Help: "Background sync delivery attempts partitioned by tag and result",
	}, []string{"tag", "result"})

	PendingUploads = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_pending_uploads",
		Help: "Uploads waiting in the background sync queue",
	})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_notifications_total",
		Help: "Notifications shown and interactions, partitioned by event",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(reqCount, reqDur, respSize, reqSize)
	prometheus.MustRegister(CacheLookups, Routes, Fallbacks, LifecycleEvents, SyncAttempts, PendingUploads, Notifications)
}
