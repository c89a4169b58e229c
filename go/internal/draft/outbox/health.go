package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastEventTime     time.Time `json:"last_event_time"`
	EventsProcessed   uint64    `json:"events_processed"`
	PendingEvents     int       `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	ListenerActive    bool      `json:"listener_active"`
	Errors            []string  `json:"errors"`
}

// HealthDeps are the dependencies the checker reads. Any of them may be nil.
type HealthDeps struct {
	Database interface {
		Ping(ctx context.Context) error
	}
	NATS interface {
		IsConnected() bool
	}
	Listener interface {
		Active() bool
	}
}

// PendingThreshold is the backlog above which the checker reports an error.
const PendingThreshold = 1000

type RelayHealthChecker struct {
	relay     *Relay
	store     Store
	deps      HealthDeps
	clock     clockwork.Clock
	threshold time.Duration // How long without events before unhealthy
}

func NewRelayHealthChecker(relay *Relay, store Store, deps HealthDeps, threshold time.Duration, clock clockwork.Clock) *RelayHealthChecker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RelayHealthChecker{
		relay:     relay,
		store:     store,
		deps:      deps,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *RelayHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:           true,
		Errors:            []string{},
		DatabaseConnected: true,
		NATSConnected:     true,
		ListenerActive:    true,
	}
	status.EventsProcessed, status.LastEventTime = h.relay.Stats()

	if h.deps.Database != nil {
		if err := h.deps.Database.Ping(ctx); err != nil {
			status.DatabaseConnected = false
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
		}
	}

	if h.deps.NATS != nil && !h.deps.NATS.IsConnected() {
		status.NATSConnected = false
		status.Healthy = false
		status.Errors = append(status.Errors, "NATS disconnected")
	}

	if h.deps.Listener != nil && !h.deps.Listener.Active() {
		status.ListenerActive = false
		status.Healthy = false
		status.Errors = append(status.Errors, "listener not active")
	}

	if status.DatabaseConnected {
		pending, err := h.store.CountPending(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > PendingThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	// Stalled only matters while there is a backlog.
	if status.PendingEvents > 0 && !status.LastEventTime.IsZero() {
		if since := h.clock.Since(status.LastEventTime); since > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events processed for %s", since))
		}
	}

	return status
}

func (h *RelayHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}
