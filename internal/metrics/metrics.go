// Package metrics defines the Prometheus collectors for the realtime core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedDisplays tracks currently connected display sessions.
	ConnectedDisplays = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slidewall_connected_displays",
			Help: "Currently connected display sessions",
		},
	)

	// ActiveChannels tracks group channels with at least one member.
	ActiveChannels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slidewall_active_channels",
			Help: "Group channels with at least one connected display",
		},
	)

	// NotificationsPublished counts published change notifications by type.
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidewall_notifications_published_total",
			Help: "Change notifications published, by notification type",
		},
		[]string{"type"},
	)

	// SlowClientsEvicted counts displays dropped because their send buffer
	// was full during a broadcast.
	SlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slidewall_slow_clients_evicted_total",
			Help: "Display connections evicted for not keeping up with broadcasts",
		},
	)

	// BootstrapRequests counts full-sequence bootstrap fetches served.
	BootstrapRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slidewall_bootstrap_requests_total",
			Help: "Bootstrap sequence fetches served",
		},
	)

	// MediaUploads counts media uploads by kind and status.
	MediaUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidewall_media_uploads_total",
			Help: "Media uploads by kind and status",
		},
		[]string{"kind", "status"},
	)
)
