package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordPick("accepted", time.Millisecond)
	r.RecordEventPublished("pick_made", nil)
	r.SubscriberAdded()
	r.SubscriberRemoved()
	r.SubscriberDropped()
	r.CacheLookup("state", true)
	r.RecordEventProcessed("pick_made", true, time.Millisecond)
	r.RecordBatchProcessed(3, time.Millisecond)
	r.RecordOutboxLag(1)
	r.RecordPublishAttempt("pick_made", 1, false)
	if r.Registry() != nil {
		t.Fatalf("nil recorder returned a registry")
	}
}

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.RecordPick("accepted", time.Millisecond)
	r.RecordPick("accepted", time.Millisecond)
	r.RecordPick("NotYourTurn", time.Millisecond)
	r.RecordEventPublished("turn_change", errors.New("nats down"))
	r.SubscriberAdded()
	r.SubscriberAdded()
	r.SubscriberRemoved()
	r.CacheLookup("picks", false)

	if got := testutil.ToFloat64(r.picks.WithLabelValues("accepted")); got != 2 {
		t.Fatalf("accepted picks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.eventsPublished.WithLabelValues("turn_change", "failure")); got != 1 {
		t.Fatalf("failed publishes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.subscribers); got != 1 {
		t.Fatalf("subscribers = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("picks", "miss")); got != 1 {
		t.Fatalf("cache misses = %v, want 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.RecordOutboxLag(4)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "fpldraft_outbox_lag 4") {
		t.Fatalf("metrics output missing outbox lag:\n%s", body)
	}
}
