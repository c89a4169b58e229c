package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string // prefix; the node id is appended
	NodeID        string
	SubjectFilter string // e.g., "draft.events.>"
	AckWait       time.Duration
	MaxAckPending int
	Inactive      time.Duration // consumer is removed after this long without this node
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	host, _ := os.Hostname()
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DRAFT_EVENTS",
		ConsumerName:  "draft-gateway",
		NodeID:        host,
		SubjectFilter: "draft.events.>",
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		Inactive:      time.Minute,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// EnvelopeSink receives envelopes relayed from the stream
type EnvelopeSink interface {
	Publish(ctx context.Context, divisionID string, envs ...events.Envelope) error
}

// EventConsumer relays JetStream events into the local hub. Every node runs
// its own consumer so every node sees every event.
type EventConsumer struct {
	sink     EnvelopeSink
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConsumerConfig
}

// NewEventConsumer creates a new JetStream event consumer
func NewEventConsumer(ctx context.Context, sink EnvelopeSink, config JetStreamConsumerConfig) (*EventConsumer, error) {
	opts := []nats.Option{
		nats.Name("fpldraft-gateway-" + config.NodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{
		sink:   sink,
		nc:     nc,
		js:     js,
		config: config,
	}
	if err := ec.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) consumerName() string {
	if ec.config.NodeID == "" {
		return ec.config.ConsumerName
	}
	return ec.config.ConsumerName + "-" + ec.config.NodeID
}

// ensureConsumer creates or updates this node's consumer. It only receives
// events published after it was created; clients reload state on connect.
func (ec *EventConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := ec.js.Stream(ctx, ec.config.StreamName)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		// The gateway may start before any publisher has declared the stream.
		stream, err = ec.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     ec.config.StreamName,
			Subjects: []string{ec.config.SubjectFilter},
		})
	}
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:              ec.consumerName(),
		Description:       "Draft gateway fan-out consumer",
		FilterSubject:     ec.config.SubjectFilter,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		AckWait:           ec.config.AckWait,
		MaxAckPending:     ec.config.MaxAckPending,
		InactiveThreshold: ec.config.Inactive,
		ReplayPolicy:      jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", ec.consumerName()).
		Str("stream", ec.config.StreamName).
		Msg("JetStream consumer ready")
	ec.consumer = consumer
	return nil
}

// Start consumes until ctx is done
func (ec *EventConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", ec.consumerName()).
		Str("stream", ec.config.StreamName).
		Msg("starting JetStream event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := ec.processMessage(ctx, msg.Data()); err != nil {
				// Malformed envelopes are never retried.
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping undeliverable event")
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to terminate message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// processMessage hands one wire envelope to the sink
func (ec *EventConsumer) processMessage(ctx context.Context, data []byte) error {
	env, err := events.Parse(data)
	if err != nil {
		return err
	}
	if _, err := env.Decode(); err != nil {
		return err
	}

	log.Debug().
		Str("event_id", env.ID).
		Str("division_id", env.DivisionID).
		Str("event_type", string(env.Type)).
		Msg("relaying JetStream event")
	return ec.sink.Publish(ctx, env.DivisionID, env)
}

// Stop closes the NATS connection
func (ec *EventConsumer) Stop() error {
	log.Info().Msg("stopping event consumer")
	if ec.nc != nil {
		ec.nc.Drain()
	}
	return nil
}
