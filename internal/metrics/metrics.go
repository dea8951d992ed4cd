// Package metrics holds the Prometheus collectors shared by the facade,
// the listener helpers and the request buffer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DeferredCalls counts resource-only calls by outcome: queued, executed, failed.
	DeferredCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discordkit_deferred_calls_total",
		Help: "Resource-only calls deferred until login, by outcome",
	}, []string{"result"})

	// PendingCalls is the number of calls waiting for login.
	PendingCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discordkit_pending_calls",
		Help: "Calls queued until the client is ready",
	})

	// Logins counts facade logins by outcome: created, reconnected, failed.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discordkit_logins_total",
		Help: "Facade login attempts by outcome",
	}, []string{"result"})

	// LoginDuration observes how long building the client took.
	LoginDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discordkit_login_duration_seconds",
		Help:    "Time spent building and connecting the client",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// ListenerEvents counts events delivered to registered listeners.
	ListenerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discordkit_listener_events_total",
		Help: "Events delivered to listeners, by event type",
	}, []string{"event"})

	// BufferRequests counts buffered requests by outcome: ok, failed, retried, dropped.
	BufferRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discordkit_buffer_requests_total",
		Help: "Requests executed by the request buffer, by outcome",
	}, []string{"result"})

	// BufferQueueDepth is the number of requests waiting in the buffer.
	BufferQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "discordkit_buffer_queue_depth",
		Help: "Requests waiting in the request buffer",
	})
)

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
