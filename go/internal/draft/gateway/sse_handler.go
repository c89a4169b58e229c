package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultKeepAlive is the interval between SSE comment frames.
const DefaultKeepAlive = 15 * time.Second

// SSEHandler streams a division's events as server-sent events
type SSEHandler struct {
	hub       *Hub
	keepAlive time.Duration
	identity  Identity
}

// NewSSEHandler creates an SSE handler. keepAlive <= 0 selects DefaultKeepAlive.
func NewSSEHandler(hub *Hub, keepAlive time.Duration, identity Identity) *SSEHandler {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	if identity == nil {
		identity = QueryOrHeaderIdentity
	}
	return &SSEHandler{hub: hub, keepAlive: keepAlive, identity: identity}
}

// HandleEvents handles GET /api/divisions/{divisionID}/events
func (h *SSEHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	divisionID := r.PathValue("divisionID")
	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn().Err(err).Str("division_id", divisionID).Msg("failed to clear SSE write deadline")
	}

	sub := h.hub.Subscribe(divisionID, h.identity(r))
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		log.Error().Err(err).Msg("SSE response cannot be flushed")
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C():
			if !ok {
				log.Debug().Str("subscription_id", sub.ID).Msg("SSE subscriber dropped")
				return
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Type, msg.Data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				log.Debug().Err(err).Str("subscription_id", sub.ID).Msg("SSE flush failed")
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				log.Debug().Err(err).Str("subscription_id", sub.ID).Msg("SSE flush failed")
				return
			}
		}
	}
}

// RegisterRoutes registers the SSE route
func (h *SSEHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/divisions/{divisionID}/events", h.HandleEvents)
}
