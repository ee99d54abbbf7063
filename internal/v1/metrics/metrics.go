// Package metrics declares the process's Prometheus instrumentation.
//
// Naming convention: namespace_subsystem_name
//   - namespace: chat (application-level grouping)
//   - subsystem: websocket, room, repository, keydirectory, rate_limit,
//     circuit_breaker (feature-level grouping)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveWebSocketConnections is the current number of live sessions.
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chat",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// WebsocketEvents counts dispatched inbound/outbound events.
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// DispatchDuration tracks time spent inside a command handler.
	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chat",
		Subsystem: "websocket",
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent dispatching a WebSocket command",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"event_type"})

	// RoomParticipants tracks active member counts per room.
	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chat",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of active members in each room",
	}, []string{"room_id"})

	// RepositoryQueryDuration tracks repository call latency by operation.
	RepositoryQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chat",
		Subsystem: "repository",
		Name:      "query_duration_seconds",
		Help:      "Duration of repository operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	// KeyDirectoryOneTimeKeyConsumed counts atomic one-time-prekey consumes.
	KeyDirectoryOneTimeKeyConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "keydirectory",
		Name:      "one_time_key_consumed_total",
		Help:      "Total one-time pre-keys consumed, by whether a key was available",
	}, []string{"result"})

	// KeyDirectoryBundleFetches counts pre-key bundle fetches.
	KeyDirectoryBundleFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "keydirectory",
		Name:      "bundle_fetch_total",
		Help:      "Total pre-key bundle fetches, by outcome",
	}, []string{"outcome"})

	// RateLimitExceeded counts requests rejected by the rate limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests counts requests checked against the rate limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chat",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	// CircuitBreakerState mirrors gobreaker's state: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "chat",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of a circuit breaker (0: Closed, 1: Half-Open, 2: Open)",
	}, []string{"breaker"})
)

func IncConnection() { ActiveWebSocketConnections.Inc() }
func DecConnection() { ActiveWebSocketConnections.Dec() }
