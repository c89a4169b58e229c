package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownType is returned when an envelope carries a type outside the union.
var ErrUnknownType = errors.New("unknown event type")

// Envelope is the wire form of an event, shared by every transport.
type Envelope struct {
	ID         string          `json:"id"`
	DivisionID string          `json:"divisionId"`
	Type       Type            `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

// Wrap encodes an event into a new envelope.
func Wrap(divisionID string, ev Event, at time.Time) (Envelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", ev.Type(), err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		DivisionID: divisionID,
		Type:       ev.Type(),
		Timestamp:  at.UTC(),
		Data:       data,
	}, nil
}

// Decode returns the concrete event carried by the envelope.
func (e Envelope) Decode() (Event, error) {
	switch e.Type {
	case TypePickMade:
		var p PickMade
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
		}
		return p, nil
	case TypeTurnChange:
		var p TurnChange
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
		}
		return p, nil
	case TypeDraftEnded:
		var p DraftEnded
		if err := json.Unmarshal(e.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

// Marshal encodes the envelope for the wire.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Parse decodes a wire envelope.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if env.DivisionID == "" {
		return Envelope{}, errors.New("event envelope has no division id")
	}
	return env, nil
}
