package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Identity resolves the user behind a streaming request
type Identity func(r *http.Request) string

// QueryOrHeaderIdentity reads X-User-ID, falling back to the user_id query
// parameter browsers can set on a WebSocket URL.
func QueryOrHeaderIdentity(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("user_id")
}

// WebSocketHandler upgrades draft subscriptions to WebSocket connections
type WebSocketHandler struct {
	hub      *Hub
	config   ConnectionConfig
	upgrader websocket.Upgrader
	identity Identity
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *Hub, config ConnectionConfig, identity Identity) *WebSocketHandler {
	if identity == nil {
		identity = QueryOrHeaderIdentity
	}
	return &WebSocketHandler{
		hub:    hub,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		identity: identity,
	}
}

// connection pairs a websocket with its hub subscription
type connection struct {
	sub    *Subscription
	conn   *websocket.Conn
	hub    *Hub
	config ConnectionConfig
}

// HandleDraftConnection handles GET /ws/draft?division_id=
func (h *WebSocketHandler) HandleDraftConnection(w http.ResponseWriter, r *http.Request) {
	divisionID := r.URL.Query().Get("division_id")
	if divisionID == "" {
		http.Error(w, "division_id is required", http.StatusBadRequest)
		return
	}
	userID := h.identity(r)
	if userID == "" {
		userID = "anonymous"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Error().Err(err).Str("division_id", divisionID).Msg("failed to upgrade WebSocket connection")
		return
	}

	c := &connection{
		sub:    h.hub.Subscribe(divisionID, userID),
		conn:   conn,
		hub:    h.hub,
		config: h.config,
	}
	go c.writePump()
	go c.readPump()

	log.Info().
		Str("subscription_id", c.sub.ID).
		Str("user_id", userID).
		Str("division_id", divisionID).
		Msg("WebSocket connection established")
}

// HandleConnectionStats handles GET /ws/stats
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.hub.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/draft", h.HandleDraftConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}

// writePump forwards hub messages to the socket until the subscription is
// released or a write fails.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C():
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber fell behind"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				log.Debug().Err(err).Str("subscription_id", c.sub.ID).Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("subscription_id", c.sub.ID).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

// readPump watches for pongs and client close. Client messages are ignored.
func (c *connection) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("subscription_id", c.sub.ID).Msg("unexpected WebSocket close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}
