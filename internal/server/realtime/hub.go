// Package realtime serves the WebSocket endpoint: heartbeats, request
// envelopes routed to the REST handlers, and change notifications fanned out
// to the owner's connections.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/iudanet/gophsync/internal/server/handlers"
)

const (
	// DefaultSendBuffer - очередь исходящих сообщений одного соединения
	DefaultSendBuffer = 64
	// DefaultWriteTimeout - таймаут записи одного сообщения
	DefaultWriteTimeout = 10 * time.Second
	// AllChannels подписывает на изменения всех типов
	AllChannels = "*"
)

var _ handlers.Notifier = (*Hub)(nil)

// Hub tracks WebSocket connections.
type Hub struct {
	dispatch      http.Handler
	logger        *slog.Logger
	clients       map[*client]struct{}
	acceptOptions websocket.AcceptOptions
	pingInterval  time.Duration
	writeTimeout  time.Duration
	sendBuffer    int
	mu            sync.RWMutex
	closed        bool
}

// Option configures Hub.
type Option func(*Hub)

// WithPingInterval makes the server ping every connection; a missed pong closes it.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		h.pingInterval = d
	}
}

// WithOriginPatterns allows cross-origin handshakes from the given host patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) {
		h.acceptOptions.OriginPatterns = patterns
	}
}

// WithSendBuffer sets the per-connection outgoing queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// NewHub creates a hub. dispatch serves request envelopes; it receives the
// request with the connection owner already in the context.
func NewHub(dispatch http.Handler, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Hub{
		dispatch:     dispatch,
		logger:       logger,
		clients:      make(map[*client]struct{}),
		writeTimeout: DefaultWriteTimeout,
		sendBuffer:   DefaultSendBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and serves the connection until it closes.
// The owner must already be in the request context.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := handlers.GetOwner(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &h.acceptOptions)
	if err != nil {
		h.logger.Warn("WebSocket handshake failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	// контекст соединения не зависит от запроса, который завершится после hijack
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	c := newClient(conn, owner, h.sendBuffer, cancel)
	if !h.register(c) {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer h.unregister(c)

	h.logger.Info("WebSocket client connected", "owner", owner, "clients", h.ClientCount())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, c)
	}()
	if h.pingInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.pingLoop(ctx, c)
		}()
	}

	err = h.readLoop(ctx, c)
	cancel()
	wg.Wait()

	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	} else {
		if err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Debug("WebSocket read failed", "owner", owner, "error", err)
		}
		conn.CloseNow()
	}
	h.logger.Info("WebSocket client disconnected", "owner", owner)
}

// Notify fans a committed change out to the owner's subscribed connections.
func (h *Hub) Notify(_ context.Context, change handlers.Change) {
	data, err := json.Marshal(eventMessage{
		Event: change.Kind,
		Data: eventData{
			Type:   change.Type,
			ID:     change.ID,
			Record: change.Record,
		},
	})
	if err != nil {
		h.logger.Error("Failed to encode change event", "type", change.Type, "id", change.ID, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.owner == change.Owner && c.subscribed(change.Type) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(websocket.MessageText, data) {
			h.logger.Warn("Dropping slow WebSocket client", "owner", c.owner)
			c.cancel()
		}
	}
}

// Close disconnects every client. Later handshakes are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		c.cancel()
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) readLoop(ctx context.Context, c *client) error {
	for {
		kind, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		h.handleMessage(ctx, c, kind, data)
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.conn.Write(writeCtx, msg.kind, msg.data)
			cancel()
			if err != nil {
				h.logger.Debug("WebSocket write failed", "owner", c.owner, "error", err)
				c.cancel()
				return
			}
		}
	}
}

func (h *Hub) pingLoop(ctx context.Context, c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.pingInterval)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.logger.Info("WebSocket client missed pong", "owner", c.owner, "error", err)
				c.cancel()
				return
			}
		}
	}
}
