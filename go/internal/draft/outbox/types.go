package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrEventNotFound is returned when an outbox row does not exist.
var ErrEventNotFound = errors.New("outbox event not found")

// OutboxEvent is one row of draft_outbox. Payload is a marshalled events.Envelope.
type OutboxEvent struct {
	ID         uuid.UUID
	Seq        int64
	DivisionID string
	EventType  string
	Payload    []byte
	CreatedAt  time.Time
	SentAt     *time.Time
}

// Store is the outbox table the relay drains.
type Store interface {
	FetchUnsent(ctx context.Context, limit int) ([]OutboxEvent, error)
	FetchByID(ctx context.Context, id uuid.UUID) (OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	CountPending(ctx context.Context) (int, error)
}

// EventPublisher delivers an outbox row to the event stream.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event OutboxEvent) error
}
