// Package metrics exposes Prometheus instrumentation for the relay:
// session gauges, event delivery counters and message throughput.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsActive tracks the number of open streaming sessions.
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_sessions_active",
		Help: "Current number of open streaming sessions",
	})

	// EventsDelivered counts events enqueued to session buffers, by kind.
	EventsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_events_delivered_total",
		Help: "Events enqueued to a session outbound buffer",
	}, []string{"kind"})

	// EventsDropped counts events dropped because a session buffer was full
	// or the session was already closed.
	EventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_events_dropped_total",
		Help: "Events dropped for full or closed session buffers",
	}, []string{"kind"})

	// MessagesTotal counts accepted chat messages, labeled by scope:
	// "global" or "private".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_messages_total",
		Help: "Accepted chat messages",
	}, []string{"scope"})

	// PersistFailures counts messages whose durable save failed.
	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_persist_failures_total",
		Help: "Messages delivered live whose save to the store failed",
	})

	// TypingEvents counts accepted typing indicators.
	TypingEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_typing_events_total",
		Help: "Accepted typing indicator events",
	})

	// SendLatency records SendMessage processing time in seconds.
	SendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatrelay_send_latency_seconds",
		Help:    "SendMessage processing latency in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	})
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		EventsDelivered,
		EventsDropped,
		MessagesTotal,
		PersistFailures,
		TypingEvents,
		SendLatency,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
