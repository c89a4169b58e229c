package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fpldraft"

// Recorder exposes draft metrics on its own registry. A nil *Recorder is
// valid and records nothing, so components can take one unconditionally.
type Recorder struct {
	registry *prometheus.Registry

	picks           *prometheus.CounterVec
	pickLatency     prometheus.Histogram
	eventsPublished *prometheus.CounterVec
	subscribers     prometheus.Gauge
	dropped         prometheus.Counter
	cacheLookups    *prometheus.CounterVec

	outboxEvents    *prometheus.CounterVec
	outboxLatency   prometheus.Histogram
	outboxBatch     prometheus.Histogram
	outboxLag       prometheus.Gauge
	publishAttempts *prometheus.CounterVec
}

// NewRecorder registers every collector on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "picks_total",
			Help:      "Pick submissions by outcome.",
		}, []string{"outcome"}),
		pickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pick_duration_seconds",
			Help:      "Time spent handling a pick submission.",
			Buckets:   prometheus.DefBuckets,
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Draft events handed to the event bus.",
		}, []string{"type", "status"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanout_subscribers",
			Help:      "Open realtime subscriptions on this node.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_dropped_total",
			Help:      "Subscribers dropped because a send failed or their buffer was full.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_cache_lookups_total",
			Help:      "Draft read cache lookups.",
		}, []string{"kind", "result"}),
		outboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events relayed by type and status.",
		}, []string{"type", "status"}),
		outboxLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_event_duration_seconds",
			Help:      "Time to relay one outbox event.",
			Buckets:   prometheus.DefBuckets,
		}),
		outboxBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_batch_size",
			Help:      "Events per outbox sweep.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),
		outboxLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_lag",
			Help:      "Unsent outbox rows seen by the last sweep.",
		}),
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_attempts_total",
			Help:      "Outbox publish attempts.",
		}, []string{"type", "attempt", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.picks, r.pickLatency, r.eventsPublished, r.subscribers, r.dropped, r.cacheLookups,
		r.outboxEvents, r.outboxLatency, r.outboxBatch, r.outboxLag, r.publishAttempts,
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordPick counts one submission outcome ("accepted" or a reject reason).
func (r *Recorder) RecordPick(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.picks.WithLabelValues(outcome).Inc()
	r.pickLatency.Observe(duration.Seconds())
}

func (r *Recorder) RecordEventPublished(eventType string, err error) {
	if r == nil {
		return
	}
	r.eventsPublished.WithLabelValues(eventType, status(err == nil)).Inc()
}

func (r *Recorder) SubscriberAdded() {
	if r == nil {
		return
	}
	r.subscribers.Inc()
}

func (r *Recorder) SubscriberRemoved() {
	if r == nil {
		return
	}
	r.subscribers.Dec()
}

func (r *Recorder) SubscriberDropped() {
	if r == nil {
		return
	}
	r.dropped.Inc()
}

// CacheLookup records a read cache hit or miss for state or picks.
func (r *Recorder) CacheLookup(kind string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	if r == nil {
		return
	}
	r.outboxEvents.WithLabelValues(eventType, status(success)).Inc()
	r.outboxLatency.Observe(duration.Seconds())
}

func (r *Recorder) RecordBatchProcessed(count int, duration time.Duration) {
	if r == nil {
		return
	}
	r.outboxBatch.Observe(float64(count))
}

func (r *Recorder) RecordOutboxLag(lag int) {
	if r == nil {
		return
	}
	r.outboxLag.Set(float64(lag))
}

func (r *Recorder) RecordPublishAttempt(eventType string, attempt int, success bool) {
	if r == nil {
		return
	}
	r.publishAttempts.WithLabelValues(eventType, strconv.Itoa(attempt), status(success)).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
