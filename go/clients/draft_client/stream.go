package draft_client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fpldraft/go/internal/draft/events"
)

// ErrStalled is reported when a stream delivers nothing within the stall timeout.
var ErrStalled = errors.New("event stream stalled")

type StreamConfig struct {
	// StallTimeout must exceed the server keep-alive interval.
	StallTimeout time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		StallTimeout: 45 * time.Second,
		MinBackoff:   500 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
	}
}

// StreamHandler receives stream lifecycle callbacks. Calls are sequential.
type StreamHandler interface {
	// OnConnect runs after every (re)connect, before any event of that connection.
	OnConnect(ctx context.Context)
	OnEvent(env events.Envelope)
	OnDisconnect(err error)
}

// Stream follows a division's server-sent event stream, reconnecting with
// exponential backoff when the connection drops or stalls.
type Stream struct {
	client     *DraftClient
	divisionID string
	http       *http.Client
	config     StreamConfig
	clock      clockwork.Clock
}

func NewStream(client *DraftClient, divisionID string, config StreamConfig, clock clockwork.Clock) *Stream {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultStreamConfig()
	if config.StallTimeout <= 0 {
		config.StallTimeout = def.StallTimeout
	}
	if config.MinBackoff <= 0 {
		config.MinBackoff = def.MinBackoff
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = config.MinBackoff
	}
	return &Stream{
		client:     client,
		divisionID: divisionID,
		// No client timeout: the stall timer bounds idle connections instead.
		http:   &http.Client{},
		config: config,
		clock:  clock,
	}
}

// Run blocks until ctx is done.
func (s *Stream) Run(ctx context.Context, h StreamHandler) error {
	backoff := s.config.MinBackoff
	for {
		delivered, err := s.connect(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.OnDisconnect(err)
		if delivered {
			backoff = s.config.MinBackoff
		}

		log.Warn().
			Err(err).
			Str("division_id", s.divisionID).
			Dur("backoff", backoff).
			Msg("event stream disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(backoff):
		}
		backoff = min(backoff*2, s.config.MaxBackoff)
	}
}

// connect reads one connection until it ends. delivered reports whether the
// connection was established, which resets the backoff.
func (s *Stream) connect(ctx context.Context, h StreamHandler) (delivered bool, err error) {
	connCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	req, err := s.client.NewRequest(connCtx, http.MethodGet, divisionPath(s.divisionID, "events"), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	stall := s.clock.AfterFunc(s.config.StallTimeout, func() { cancel(ErrStalled) })
	defer stall.Stop()

	resp, err := s.http.Do(req)
	if err != nil {
		return false, streamErr(connCtx, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	h.OnConnect(ctx)
	stall.Reset(s.config.StallTimeout)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var data strings.Builder
	for scanner.Scan() {
		stall.Reset(s.config.StallTimeout)
		line := scanner.Text()

		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			env, err := events.Parse([]byte(data.String()))
			data.Reset()
			if err != nil {
				log.Warn().Err(err).Str("division_id", s.divisionID).Msg("skipping malformed stream event")
				continue
			}
			h.OnEvent(env)
		case strings.HasPrefix(line, ":"):
			// comment or keep-alive
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return true, streamErr(connCtx, err)
	}
	return true, errors.New("event stream closed by server")
}

// streamErr prefers the cancellation cause (a stall) over the transport error it produced.
func streamErr(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil && errors.Is(cause, ErrStalled) {
		return ErrStalled
	}
	return err
}
