package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec

	// Domain metrics
	TaskMoves           *prometheus.CounterVec
	ReorderLatency      prometheus.Histogram
	NotificationsSent   *prometheus.CounterVec
	CertificateRenders  prometheus.Counter
	CertificateFailures prometheus.Counter

	// Connection manager reference for dynamic metrics
	connManager *ConnectionManager
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics(connManager *ConnectionManager) *Metrics {
	metrics := &Metrics{
		connManager: connManager,

		// WebSocket active connections (gauge - can go up and down)
		WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tribehub_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		}),

		// WebSocket messages by type (counter - only goes up)
		WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tribehub_websocket_messages_total",
			Help: "Total number of WebSocket messages by type",
		}, []string{"type", "direction"}), // direction: "inbound" or "outbound"

		// Kanban card moves, labeled by how the move was requested
		TaskMoves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tribehub_task_moves_total",
			Help: "Total number of task status moves",
		}, []string{"kind"}), // "status", "next", "prev"

		// Sibling reorder transactions commit in one round trip
		ReorderLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tribehub_reorder_duration_seconds",
			Help:    "Duration of batched reorder transactions",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),

		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tribehub_notifications_sent_total",
			Help: "Total notifications delivered by type",
		}, []string{"type"}),

		CertificateRenders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tribehub_certificate_renders_total",
			Help: "Total completion certificates rendered",
		}),

		CertificateFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tribehub_certificate_failures_total",
			Help: "Total failed certificate renders",
		}),
	}

	// Register a collector that reports live connections from ConnectionManager
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tribehub_websocket_connections_current",
			Help: "Current number of active WebSocket connections (from connection manager)",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	m.WebSocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.WebSocketMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordTaskMove records a kanban card move
func (m *Metrics) RecordTaskMove(kind string) {
	m.TaskMoves.WithLabelValues(kind).Inc()
}

// RecordReorderLatency records the duration of a reorder transaction
func (m *Metrics) RecordReorderLatency(seconds float64) {
	m.ReorderLatency.Observe(seconds)
}

// RecordNotification records a delivered notification
func (m *Metrics) RecordNotification(notifType string) {
	m.NotificationsSent.WithLabelValues(notifType).Inc()
}

// RecordCertificateRender records a completed certificate render
func (m *Metrics) RecordCertificateRender(ok bool) {
	if ok {
		m.CertificateRenders.Inc()
	} else {
		m.CertificateFailures.Inc()
	}
}
