// Package metrics holds the Prometheus collectors for the interaction engine
// and the live connection layer.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_http_requests_total",
			Help: "HTTP requests by method, route template and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookreview_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Reaction Metrics
	ReactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_reactions_total",
			Help: "Reaction calls by action and whether state changed",
		},
		[]string{"action", "changed"},
	)

	// Comment Metrics
	CommentOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_comment_operations_total",
			Help: "Successful comment create/edit/delete operations",
		},
		[]string{"operation"},
	)

	// Broadcast Metrics
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_room_broadcasts_total",
			Help: "Room broadcasts by event name",
		},
		[]string{"event"},
	)

	SubscriberEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookreview_subscriber_evictions_total",
			Help: "Connections dropped because a send to them failed",
		},
	)

	SocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookreview_socket_connections",
			Help: "Currently connected socket clients",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bookreview_active_rooms",
			Help: "Rooms with at least one subscriber",
		},
	)

	// Notification Metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_notifications_total",
			Help: "Persisted notifications by kind and whether they were pushed live",
		},
		[]string{"kind", "live"},
	)

	SideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookreview_side_effect_failures_total",
			Help: "Broadcast or notification failures isolated from the primary mutation",
		},
		[]string{"stage"},
	)
)

// RecordReaction counts one reaction call.
func RecordReaction(action string, changed bool) {
	ReactionsTotal.WithLabelValues(action, strconv.FormatBool(changed)).Inc()
}

// RecordHTTPRequest counts one served request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordNotification counts one persisted notification.
func RecordNotification(kind string, live bool) {
	NotificationsTotal.WithLabelValues(kind, strconv.FormatBool(live)).Inc()
}
