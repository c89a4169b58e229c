package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
)

// DefaultSubscriptionBuffer is how many undelivered messages a subscriber may
// hold before it is dropped.
const DefaultSubscriptionBuffer = 256

// Message is one encoded event queued for a subscriber.
type Message struct {
	ID   string
	Type events.Type
	Data []byte
}

// Subscription is one connected client of a division's channel.
type Subscription struct {
	ID          string
	DivisionID  string
	UserID      string
	ConnectedAt time.Time

	send   chan Message
	closed bool
}

// C delivers messages in publish order. It is closed when the subscription
// is released, either by Unsubscribe or because the subscriber fell behind.
func (s *Subscription) C() <-chan Message {
	return s.send
}

// HubRecorder receives fan-out metrics
type HubRecorder interface {
	SubscriberAdded()
	SubscriberRemoved()
	SubscriberDropped()
}

// HubStats summarizes open subscriptions
type HubStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveDivisions  int            `json:"active_divisions"`
	Divisions        map[string]int `json:"division_connections"`
}

// Hub fans events out to the subscribers of each division. Publish never
// blocks on a subscriber.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	// pubMu serializes Publish so every subscriber sees one global order.
	pubMu sync.Mutex

	buffer  int
	metrics HubRecorder
}

// NewHub creates an empty hub. buffer <= 0 selects DefaultSubscriptionBuffer.
func NewHub(buffer int, metrics HubRecorder) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	return &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		metrics: metrics,
	}
}

// Subscribe registers a new subscriber on a division channel.
func (h *Hub) Subscribe(divisionID, userID string) *Subscription {
	sub := &Subscription{
		ID:          uuid.NewString(),
		DivisionID:  divisionID,
		UserID:      userID,
		ConnectedAt: time.Now(),
		send:        make(chan Message, h.buffer),
	}

	h.mu.Lock()
	if h.subs[divisionID] == nil {
		h.subs[divisionID] = make(map[*Subscription]struct{})
	}
	h.subs[divisionID][sub] = struct{}{}
	count := len(h.subs[divisionID])
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscriberAdded()
	}
	log.Debug().
		Str("subscription_id", sub.ID).
		Str("division_id", divisionID).
		Str("user_id", userID).
		Int("division_connections", count).
		Msg("subscription registered")
	return sub
}

// Unsubscribe releases a subscription. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if h.remove(sub) {
		log.Debug().
			Str("subscription_id", sub.ID).
			Str("division_id", sub.DivisionID).
			Msg("subscription released")
	}
}

func (h *Hub) remove(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed {
		return false
	}
	sub.closed = true
	close(sub.send)

	if conns, ok := h.subs[sub.DivisionID]; ok {
		delete(conns, sub)
		if len(conns) == 0 {
			delete(h.subs, sub.DivisionID)
		}
	}
	if h.metrics != nil {
		h.metrics.SubscriberRemoved()
	}
	return true
}

// Publish delivers the envelopes, in order, to every current subscriber of
// the division. A subscriber whose buffer is full is dropped.
func (h *Hub) Publish(_ context.Context, divisionID string, envs ...events.Envelope) error {
	msgs := make([]Message, 0, len(envs))
	for _, env := range envs {
		data, err := env.Marshal()
		if err != nil {
			return fmt.Errorf("failed to marshal %s envelope: %w", env.Type, err)
		}
		msgs = append(msgs, Message{ID: env.ID, Type: env.Type, Data: data})
	}

	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	var slow []*Subscription
	h.mu.RLock()
	conns := h.subs[divisionID]
	for sub := range conns {
		if !offer(sub, msgs) {
			slow = append(slow, sub)
		}
	}
	delivered := len(conns) - len(slow)
	h.mu.RUnlock()

	for _, sub := range slow {
		if h.remove(sub) {
			if h.metrics != nil {
				h.metrics.SubscriberDropped()
			}
			log.Warn().
				Str("subscription_id", sub.ID).
				Str("division_id", divisionID).
				Str("user_id", sub.UserID).
				Msg("subscriber fell behind, dropping")
		}
	}

	log.Debug().
		Str("division_id", divisionID).
		Int("events", len(msgs)).
		Int("subscribers", delivered).
		Msg("events fanned out")
	return nil
}

func offer(sub *Subscription, msgs []Message) bool {
	for _, msg := range msgs {
		select {
		case sub.send <- msg:
		default:
			return false
		}
	}
	return true
}

// Stats reports open subscriptions per division.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{Divisions: make(map[string]int, len(h.subs))}
	for id, conns := range h.subs {
		stats.Divisions[id] = len(conns)
		stats.TotalConnections += len(conns)
	}
	stats.ActiveDivisions = len(h.subs)
	return stats
}
