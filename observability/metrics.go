package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tutor_realtime"

var (
	activeConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open client connections",
		},
		[]string{"transport"},
	)

	onlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Number of users holding at least one connection on this process",
		},
	)

	droppedConnections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_dropped_total",
			Help:      "Connections closed by the server",
		},
		[]string{"reason"},
	)

	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Events enqueued on client connections",
		},
		[]string{"type"},
	)

	fanoutRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_recipients",
			Help:      "Local recipients per channel broadcast",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	notificationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_received_total",
			Help:      "Store notifications received by the bridge",
		},
		[]string{"channel"},
	)

	notificationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Notifications that could not be decoded or handled",
		},
		[]string{"stage"},
	)

	bridgeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_reconnects_total",
			Help:      "Reconnection attempts of the notification bridge",
		},
	)

	bridgeState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_state",
			Help:      "0 disconnected, 1 connected, 2 listening",
		},
	)

	workerRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_restarts_total",
			Help:      "Supervised worker restarts after a crash",
		},
		[]string{"worker"},
	)

	processRSS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_rss_bytes",
			Help:      "Resident memory of the process as reported by the OS",
		},
	)
)

func ConnectionOpened(transport string) {
	activeConnections.WithLabelValues(transport).Inc()
}

func ConnectionClosed(transport string) {
	activeConnections.WithLabelValues(transport).Dec()
}

func SetOnlineUsers(count int) {
	onlineUsers.Set(float64(count))
}

func ConnectionDropped(reason string) {
	droppedConnections.WithLabelValues(reason).Inc()
}

func EventDelivered(eventType string, count int) {
	eventsDelivered.WithLabelValues(eventType).Add(float64(count))
}

func ObserveFanout(recipients int) {
	fanoutRecipients.Observe(float64(recipients))
}

func NotificationReceived(channel string) {
	notificationsReceived.WithLabelValues(channel).Inc()
}

// NotificationFailed counts a failure at "decode" or "handler" stage.
func NotificationFailed(stage string) {
	notificationErrors.WithLabelValues(stage).Inc()
}

func BridgeReconnect() {
	bridgeReconnects.Inc()
}

func SetBridgeState(state int) {
	bridgeState.Set(float64(state))
}

func WorkerRestarted(worker string) {
	workerRestarts.WithLabelValues(worker).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
