package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type RelayConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	BatchSize  int
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxRetries: 5,
		RetryDelay: 200 * time.Millisecond,
		BatchSize:  100,
	}
}

// Relay moves committed outbox rows onto the event stream and marks them sent.
// Calls are not safe for concurrent use; the listener drives a relay from one goroutine.
type Relay struct {
	store     Store
	publisher EventPublisher
	metrics   MetricsCollector
	clock     clockwork.Clock
	cfg       RelayConfig

	processed atomic.Uint64
	lastEvent atomic.Int64
}

func NewRelay(store Store, publisher EventPublisher, cfg RelayConfig, metrics MetricsCollector, clock clockwork.Clock) *Relay {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}
	return &Relay{
		store:     store,
		publisher: NewMetricPublisher(publisher, metrics),
		metrics:   metrics,
		clock:     clock,
		cfg:       cfg,
	}
}

// HandleNotification relays the row named by a NOTIFY payload. The row is
// published through the ordered drain, never on its own, so it cannot overtake
// an earlier row that is still unsent.
func (r *Relay) HandleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	event, err := r.store.FetchByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	if event.SentAt != nil {
		log.Debug().Str("event_id", id.String()).Msg("outbox event already sent")
		return nil
	}

	for {
		relayed, err := r.drain(ctx)
		if err != nil {
			return err
		}
		// A short batch means the backlog, and with it the notified row, is gone.
		if relayed < r.cfg.BatchSize {
			return nil
		}
	}
}

// ProcessUnsent drains one batch of unsent rows in order. It stops at the
// first row that cannot be published so later events never overtake it.
func (r *Relay) ProcessUnsent(ctx context.Context) error {
	_, err := r.drain(ctx)
	return err
}

func (r *Relay) drain(ctx context.Context) (int, error) {
	start := r.clock.Now()

	pending, err := r.store.CountPending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count pending outbox events")
	} else {
		r.metrics.RecordOutboxLag(pending)
	}

	unsent, err := r.store.FetchUnsent(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	relayed := 0
	for _, event := range unsent {
		if err := r.relay(ctx, event); err != nil {
			r.metrics.RecordBatchProcessed(relayed, r.clock.Since(start))
			return relayed, err
		}
		relayed++
	}
	r.metrics.RecordBatchProcessed(relayed, r.clock.Since(start))
	if relayed > 0 {
		log.Info().Int("count", relayed).Msg("relayed unsent outbox events")
	}
	return relayed, nil
}

// Stats returns the number of relayed events and when the last one was relayed.
func (r *Relay) Stats() (uint64, time.Time) {
	var last time.Time
	if ns := r.lastEvent.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return r.processed.Load(), last
}

func (r *Relay) relay(ctx context.Context, event OutboxEvent) error {
	if err := r.publishWithRetry(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}
	if err := r.store.MarkSent(ctx, event.ID); err != nil {
		return err
	}

	r.processed.Add(1)
	r.lastEvent.Store(r.clock.Now().UnixNano())
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("division_id", event.DivisionID).
		Str("event_type", event.EventType).
		Msg("published and marked event as sent")
	return nil
}

// publishWithRetry attempts to publish an outbox event with a linear backoff.
func (r *Relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.clock.After(delay):
			}
		}

		err := r.publisher.PublishEvent(ctx, event)
		r.metrics.RecordPublishAttempt(event.EventType, attempt+1, err == nil)
		if err == nil {
			if attempt > 0 {
				log.Info().
					Int("attempt", attempt+1).
					Str("event_id", event.ID.String()).
					Msg("publish succeeded after retry")
			}
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		lastErr = err
		log.Error().
			Err(err).
			Int("attempt", attempt+1).
			Str("event_id", event.ID.String()).
			Msg("failed to publish, retrying")
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}
