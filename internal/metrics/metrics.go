package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the watch-party hub.
type Metrics struct {
	registry           *prometheus.Registry
	roomsCreatedTotal  prometheus.Counter
	chatMessagesTotal  prometheus.Counter
	transfersStarted   prometheus.Counter
	transfersCompleted prometheus.Counter
	transfersExpired   prometheus.Counter
	transfersAborted   prometheus.Counter
	sendFailuresTotal  prometheus.Counter
	activeRooms        prometheus.Gauge
	liveConnections    prometheus.Gauge
}

// New creates and registers Prometheus metrics for the hub.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	roomsCreatedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_rooms_created_total",
		Help: "Total number of rooms created",
	})
	chatMessagesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_chat_messages_total",
		Help: "Total number of chat messages relayed",
	})
	transfersStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_transfers_started_total",
		Help: "Total number of video transfers started",
	})
	transfersCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_transfers_completed_total",
		Help: "Total number of video transfers completed",
	})
	transfersExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_transfers_expired_total",
		Help: "Total number of video transfers reaped by the liveness timeout",
	})
	transfersAborted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_transfers_aborted_total",
		Help: "Total number of video transfers aborted by integrity or delivery failures",
	})
	sendFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchparty_send_failures_total",
		Help: "Total number of failed deliveries to individual connections",
	})
	activeRooms := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_active_rooms",
		Help: "Number of rooms with at least one participant",
	})
	liveConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "watchparty_live_connections",
		Help: "Number of live websocket connections",
	})

	registry.MustRegister(
		roomsCreatedTotal,
		chatMessagesTotal,
		transfersStarted,
		transfersCompleted,
		transfersExpired,
		transfersAborted,
		sendFailuresTotal,
		activeRooms,
		liveConnections,
	)

	return &Metrics{
		registry:           registry,
		roomsCreatedTotal:  roomsCreatedTotal,
		chatMessagesTotal:  chatMessagesTotal,
		transfersStarted:   transfersStarted,
		transfersCompleted: transfersCompleted,
		transfersExpired:   transfersExpired,
		transfersAborted:   transfersAborted,
		sendFailuresTotal:  sendFailuresTotal,
		activeRooms:        activeRooms,
		liveConnections:    liveConnections,
	}
}

func (m *Metrics) IncRoomsCreated() {
	m.roomsCreatedTotal.Inc()
}

func (m *Metrics) IncChatMessages() {
	m.chatMessagesTotal.Inc()
}

func (m *Metrics) IncTransfersStarted() {
	m.transfersStarted.Inc()
}

func (m *Metrics) IncTransfersCompleted() {
	m.transfersCompleted.Inc()
}

func (m *Metrics) IncTransfersExpired() {
	m.transfersExpired.Inc()
}

func (m *Metrics) IncTransfersAborted() {
	m.transfersAborted.Inc()
}

func (m *Metrics) IncSendFailures() {
	m.sendFailuresTotal.Inc()
}

func (m *Metrics) SetActiveRooms(n int) {
	m.activeRooms.Set(float64(n))
}

func (m *Metrics) SetLiveConnections(n int) {
	m.liveConnections.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
