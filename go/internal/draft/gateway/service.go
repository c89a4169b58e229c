package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds configuration for the draft gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	SubscriberBuffer int
	KeepAlive        time.Duration
	// JetStreamConfig is nil when events arrive in-process only.
	JetStreamConfig *JetStreamConsumerConfig
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		SubscriberBuffer: DefaultSubscriptionBuffer,
		KeepAlive:        DefaultKeepAlive,
	}
}

// Service is the realtime fan-out of draft events over SSE and WebSocket
type Service struct {
	hub           *Hub
	wsHandler     *WebSocketHandler
	sseHandler    *SSEHandler
	eventConsumer *EventConsumer
}

// NewService creates a new draft gateway service
func NewService(ctx context.Context, config Config, metrics HubRecorder, identity Identity) (*Service, error) {
	hub := NewHub(config.SubscriberBuffer, metrics)
	s := &Service{
		hub:        hub,
		wsHandler:  NewWebSocketHandler(hub, config.ConnectionConfig, identity),
		sseHandler: NewSSEHandler(hub, config.KeepAlive, identity),
	}

	if config.JetStreamConfig != nil {
		consumer, err := NewEventConsumer(ctx, hub, *config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Hub returns the local fan-out, which doubles as the in-process publisher.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start runs the JetStream consumer, if any, until ctx is done
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting draft gateway service")
	if s.eventConsumer == nil {
		<-ctx.Done()
		return nil
	}
	defer s.eventConsumer.Stop()
	return s.eventConsumer.Start(ctx)
}

// RegisterRoutes registers the streaming HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.sseHandler.RegisterRoutes(mux)
	log.Info().Msg("draft gateway routes registered")
}
