// Package notify broadcasts progress messages to websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// Message types.
const (
	TypeInfo     = "info"
	TypeProgress = "progress"
	TypeSync     = "sync"
)

// writeTimeout bounds a single send to one client.
const writeTimeout = 5 * time.Second

// Message is what clients receive, one JSON object per websocket message.
type Message struct {
	Type      string    `json:"type"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Done      int       `json:"done,omitempty"`
	Total     int       `json:"total,omitempty"`
	Percent   int       `json:"percent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub tracks connected clients and fans messages out to them.
// It is an http.Handler for the websocket endpoint.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}

	originPatterns []string
	logger         zerolog.Logger
}

// NewHub creates a Hub. originPatterns are passed to websocket.Accept;
// nil allows same-origin connections only.
func NewHub(logger zerolog.Logger, originPatterns ...string) *Hub {
	return &Hub{
		clients:        make(map[*websocket.Conn]struct{}),
		originPatterns: originPatterns,
		logger:         logger.With().Str("component", "notify").Logger(),
	}
}

// ServeHTTP upgrades the request and holds the connection until the client
// leaves. Client messages are ignored.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("client connected")

	defer h.remove(conn)

	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
}

// Broadcast sends msg to every client. Clients that fail to receive it are
// dropped.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Sender == "" {
		msg.Sender = "Server"
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.RUnlock()

	for _, conn := range clients {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug().Err(err).Msg("failed to send to client")
			h.remove(conn)
		}
	}
}

// Progress broadcasts the progress of a bulk operation.
func (h *Hub) Progress(ctx context.Context, text string, done, total int) {
	percent := 0
	if total > 0 {
		percent = done * 100 / total
	}
	h.Broadcast(ctx, Message{
		Type:    TypeProgress,
		Text:    text,
		Done:    done,
		Total:   total,
		Percent: percent,
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for conn := range clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug().Int("clients", count).Msg("client disconnected")
	}
}
