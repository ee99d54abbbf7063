package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWebsocketEventsIncrements(t *testing.T) {
	WebsocketEvents.WithLabelValues("message_received", "delivered").Inc()
	val := testutil.ToFloat64(WebsocketEvents.WithLabelValues("message_received", "delivered"))
	if val < 1 {
		t.Errorf("expected WebsocketEvents to be at least 1, got %v", val)
	}
}

func TestDispatchDurationObserves(t *testing.T) {
	DispatchDuration.WithLabelValues("send_message").Observe(0.01)
}

func TestRepositoryQueryDurationObserves(t *testing.T) {
	RepositoryQueryDuration.WithLabelValues("InsertMessage", "success").Observe(0.005)
}

func TestKeyDirectoryCounters(t *testing.T) {
	KeyDirectoryOneTimeKeyConsumed.WithLabelValues("consumed").Inc()
	KeyDirectoryBundleFetches.WithLabelValues("ok").Inc()
}

func TestRateLimitCounters(t *testing.T) {
	RateLimitRequests.WithLabelValues("/v1/ws").Inc()
	RateLimitExceeded.WithLabelValues("/v1/ws", "per_ip").Inc()
}

func TestConnectionGauge(t *testing.T) {
	before := testutil.ToFloat64(ActiveWebSocketConnections)
	IncConnection()
	if after := testutil.ToFloat64(ActiveWebSocketConnections); after != before+1 {
		t.Errorf("expected gauge to increase by 1, got %v -> %v", before, after)
	}
	DecConnection()
}
