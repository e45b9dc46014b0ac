// Package websocket pushes project events to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"buildtrack/internal/infrastructure"
	"buildtrack/pkg/contracts/events"
)

// ErrHubStopped is returned by Publish after the hub has shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

const (
	defaultPongWait   = 60 * time.Second
	defaultPingPeriod = (defaultPongWait * 9) / 10
	sendBufferSize    = 256
)

// Option configures a Hub.
type Option func(*Hub)

// WithKeepalive sets the ping period and the pong deadline used by clients.
// The ping period must be shorter than pongWait; otherwise it is derived from it.
func WithKeepalive(pingPeriod, pongWait time.Duration) Option {
	return func(h *Hub) {
		if pongWait > 0 {
			h.pongWait = pongWait
		}
		if pingPeriod > 0 && pingPeriod < h.pongWait {
			h.pingPeriod = pingPeriod
		} else {
			h.pingPeriod = (h.pongWait * 9) / 10
		}
	}
}

// WithMetrics records connected client counts.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// Stats is a point-in-time view of hub activity.
type Stats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	SlowClients      int64 `json:"slow_clients_dropped"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu    sync.RWMutex
	stats Stats

	pingPeriod time.Duration
	pongWait   time.Duration

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewHub creates a new Hub. Call Run to start it.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, sendBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		pingPeriod: defaultPingPeriod,
		pongWait:   defaultPongWait,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down", slog.Int("clients", h.ClientCount()))
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.stats.TotalConnections++
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.WebSocketConnected(ctx, 1)

			h.logger.InfoContext(client.context(), "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))
			h.greet(client)

		case client := <-h.unregister:
			if h.remove(client) {
				h.logger.InfoContext(client.context(), "client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", h.ClientCount()))
			}

		case message := <-h.broadcast:
			h.fanOut(ctx, message)
		}
	}
}

// Register adds a client. It does nothing once the hub has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.conn.Close()
	}
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish wraps data in an event envelope and queues it for every client.
func (h *Hub) Publish(ctx context.Context, typ events.MessageType, data interface{}) error {
	msg := events.Message{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
		Data:      data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", typ, err)
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns current hub counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.stats
	s.ActiveClients = len(h.clients)
	return s
}

func (h *Hub) greet(c *Client) {
	payload, err := json.Marshal(events.Message{
		Type:      events.MessageTypeConnect,
		Timestamp: time.Now().UTC(),
		TraceID:   c.traceID,
		Data:      events.Connected{ClientID: c.id, Message: "Connected to BuildTrack"},
	})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.logger.Warn("client buffer full before greeting", slog.String("client_id", c.id))
	}
}

func (h *Hub) fanOut(ctx context.Context, message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		select {
		case c.send <- message:
			sent++
		default:
			// a client that cannot keep up is disconnected
			if h.remove(c) {
				h.mu.Lock()
				h.stats.SlowClients++
				h.mu.Unlock()
				h.logger.WarnContext(c.context(), "client send buffer full, disconnecting",
					slog.String("client_id", c.id))
			}
		}
	}

	h.mu.Lock()
	h.stats.MessagesSent += int64(sent)
	h.mu.Unlock()

	h.logger.DebugContext(ctx, "broadcast delivered",
		slog.Int("clients", len(clients)),
		slog.Int("delivered", sent),
		slog.Int("payload_size", len(message)))
}

// remove deletes c and closes its queue. It reports whether c was registered.
func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.metrics.WebSocketConnected(context.Background(), -1)
	}
	return ok
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.remove(c)
	}
}
