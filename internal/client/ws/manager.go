// Package ws maintains a WebSocket connection to the sync server: connect and
// reconnect with exponential backoff, heartbeat, request/response correlation,
// channel subscriptions and classification of server events.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/gophsync/internal/broadcast"
)

// Handler receives every raw inbound message.
type Handler func(kind MessageKind, data []byte)

type result struct {
	resp *Response
	err  error
}

// Manager owns one logical WebSocket connection.
type Manager struct {
	dialer    Dialer
	conn      Conn
	logger    *slog.Logger
	events    *broadcast.Broadcaster[Event]
	pending   map[string]chan result
	reconnect *time.Timer
	stopConn  context.CancelFunc
	handlers  []Handler
	cfg       Config
	nextID    atomic.Uint64
	// generation отбрасывает колбэки от устаревших соединений и таймеров
	generation uint64
	attempts   int
	state      State
	mu         sync.Mutex
	writeMu    sync.Mutex
	wg         sync.WaitGroup
}

// NewManager creates a manager in state Closed. A nil dialer uses CoderDialer.
func NewManager(cfg Config, dialer Dialer, logger *slog.Logger) *Manager {
	cfg = cfg.withDefaults()
	if dialer == nil {
		dialer = CoderDialer{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		cfg:     cfg,
		dialer:  dialer,
		logger:  logger,
		events:  broadcast.New[Event](cfg.EventBuffer),
		pending: make(map[string]chan result),
		state:   StateClosed,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReconnectAttempts returns the number of reconnect attempts since the last successful connect.
func (m *Manager) ReconnectAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Events subscribes to the event stream. Only events emitted after the call are delivered.
func (m *Manager) Events() (<-chan Event, func()) {
	return m.events.Subscribe()
}

// AddHandler registers a raw message handler. A panicking handler does not
// stop the remaining handlers.
func (m *Manager) AddHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Connect opens the connection. It is a no-op when already Open or Connecting.
// After reconnect attempts are exhausted, Connect starts a fresh attempt budget.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateOpen, StateConnecting:
		m.mu.Unlock()
		return nil
	case StateClosed:
		m.attempts = 0
	}
	m.stopReconnectTimer()
	gen := m.beginConnect()
	m.mu.Unlock()

	return m.dial(ctx, gen)
}

// beginConnect moves to Connecting and returns the new generation. Caller holds mu.
func (m *Manager) beginConnect() uint64 {
	m.generation++
	m.state = StateConnecting
	return m.generation
}

func (m *Manager) dial(ctx context.Context, gen uint64) error {
	m.logger.Debug("Connecting websocket", "url", m.cfg.URL, "attempt", m.ReconnectAttempts())

	conn, err := m.dialer.Dial(ctx, m.cfg.URL, m.cfg.Header)

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		// Disconnect произошел во время dial
		if conn != nil {
			_ = conn.Close()
		}
		return ErrConnectionClosed
	}

	if err != nil {
		m.state = StateError
		m.logger.Warn("Websocket connect failed", "url", m.cfg.URL, "error", err)
		m.emit(Event{Kind: EventConnectionFailed, Err: err})
		m.scheduleReconnect()
		return fmt.Errorf("websocket connect: %w", err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	m.conn = conn
	m.stopConn = cancel
	m.state = StateOpen
	m.attempts = 0

	m.wg.Add(2)
	go m.readLoop(connCtx, gen, conn)
	go m.heartbeat(connCtx, gen)

	m.logger.Info("Websocket connected", "url", m.cfg.URL)
	m.emit(Event{Kind: EventConnectionEstablished})
	return nil
}

// Disconnect closes the connection and cancels timers. Idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.generation++
	m.stopReconnectTimer()
	conn := m.teardown()
	wasClosed := m.state == StateClosed
	m.state = StateClosed
	m.attempts = 0
	if !wasClosed {
		m.emit(Event{Kind: EventConnectionClosed})
	}
	m.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	m.wg.Wait()
	return err
}

// Close disconnects and closes the event stream.
func (m *Manager) Close() error {
	err := m.Disconnect()
	m.events.Close()
	return err
}

// teardown detaches the current connection and fails every pending request. Caller holds mu.
func (m *Manager) teardown() Conn {
	conn := m.conn
	m.conn = nil
	if m.stopConn != nil {
		m.stopConn()
		m.stopConn = nil
	}
	for id, ch := range m.pending {
		ch <- result{err: ErrConnectionClosed}
		delete(m.pending, id)
	}
	return conn
}

// handleDrop reacts to a transport-level close or read error.
func (m *Manager) handleDrop(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.generation++
	conn := m.teardown()
	m.logger.Warn("Websocket connection lost", "error", cause)
	m.scheduleReconnect()
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// scheduleReconnect arms the next reconnect attempt or gives up. Caller holds mu.
func (m *Manager) scheduleReconnect() {
	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.state = StateClosed
		m.logger.Error("Websocket reconnect attempts exhausted", "attempts", m.attempts)
		m.emit(Event{
			Kind:        EventConnectionFailed,
			Err:         ErrReconnectExhausted,
			Attempt:     m.attempts,
			MaxAttempts: m.cfg.MaxReconnectAttempts,
		})
		return
	}

	m.attempts++
	m.state = StateReconnecting
	delay := BackoffDelay(m.cfg.ReconnectDelay, m.attempts)
	gen := m.generation

	m.logger.Info("Websocket reconnect scheduled", "attempt", m.attempts, "max", m.cfg.MaxReconnectAttempts, "delay", delay)
	m.emit(Event{Kind: EventReconnecting, Attempt: m.attempts, MaxAttempts: m.cfg.MaxReconnectAttempts})

	m.reconnect = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if gen != m.generation || m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.reconnect = nil
		next := m.beginConnect()
		m.mu.Unlock()

		_ = m.dial(context.Background(), next)
	})
}

// stopReconnectTimer cancels a scheduled reconnect. Caller holds mu.
func (m *Manager) stopReconnectTimer() {
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
}

func (m *Manager) emit(ev Event) {
	m.events.Publish(ev)
}

func (m *Manager) readLoop(ctx context.Context, gen uint64, conn Conn) {
	defer m.wg.Done()
	for {
		kind, data, err := conn.Read(ctx)
		if err != nil {
			m.handleDrop(gen, err)
			return
		}
		m.dispatch(kind, data)
	}
}

func (m *Manager) heartbeat(ctx context.Context, gen uint64) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// потерю соединения определяет readLoop, здесь только отправка
			if err := m.write(ctx, m.cfg.kind(PurposeHeartbeat), m.cfg.PingPayload); err != nil {
				m.logger.Debug("Heartbeat failed", "error", err)
			}
		}
	}
}

func (m *Manager) dispatch(kind MessageKind, data []byte) {
	m.mu.Lock()
	handlers := append([]Handler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		m.runHandler(h, kind, data)
	}

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		m.logger.Debug("Ignoring non-JSON websocket message", "error", err)
		return
	}

	switch {
	case msg.RequestID != "":
		m.resolve(msg.Response)
	case msg.Type == "pong":
		// ответ на heartbeat
	case msg.Event != "":
		evKind, ok := m.cfg.EventMap[msg.Event]
		if !ok {
			m.logger.Debug("Ignoring unmapped event", "event", msg.Event)
			return
		}
		m.emit(Event{Kind: evKind, Name: msg.Event, Data: msg.Data, Message: msg.Message})
	}
}

func (m *Manager) runHandler(h Handler, kind MessageKind, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Websocket message handler panicked", "panic", r)
		}
	}()
	h(kind, data)
}

func (m *Manager) resolve(resp Response) {
	m.mu.Lock()
	ch, ok := m.pending[resp.RequestID]
	if ok {
		delete(m.pending, resp.RequestID)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("Response for unknown request", "request_id", resp.RequestID)
		return
	}
	ch <- result{resp: &resp}
}

// Send writes a raw payload. Payloads that are not []byte or json.RawMessage are JSON encoded.
func (m *Manager) Send(ctx context.Context, payload any, kind MessageKind) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}
	return m.write(ctx, kind, data)
}

func (m *Manager) write(ctx context.Context, kind MessageKind, data []byte) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.Write(ctx, kind, data)
}

// RequestOptions carries optional request envelope fields.
type RequestOptions struct {
	Headers         map[string]string
	QueryParameters map[string]string
}

// Request sends a correlated request and waits for the matching response,
// the request timeout, connection closure, or ctx cancellation.
func (m *Manager) Request(ctx context.Context, method, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	id := strconv.FormatUint(m.nextID.Add(1), 10)

	req := Request{
		RequestID: id,
		Method:    method,
		Endpoint:  endpoint,
		Body:      body,
	}
	if opts != nil {
		req.Headers = opts.Headers
		req.QueryParameters = opts.QueryParameters
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ch := make(chan result, 1)
	m.mu.Lock()
	if m.state != StateOpen {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	m.pending[id] = ch
	m.mu.Unlock()

	timer := time.NewTimer(m.cfg.RequestTimeout)
	defer timer.Stop()

	if err := m.write(ctx, m.cfg.kind(PurposeRequest), data); err != nil {
		m.forget(id)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case res := <-ch:
		return res.resp, res.err
	case <-timer.C:
		m.forget(id)
		return nil, fmt.Errorf("%w: %s %s (request %s)", ErrRequestTimeout, method, endpoint, id)
	case <-ctx.Done():
		m.forget(id)
		return nil, ctx.Err()
	}
}

// PendingRequests returns the number of requests awaiting a response.
func (m *Manager) PendingRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// Subscribe sends a fire-and-forget subscription message. Subscriptions are
// not tracked; callers resubscribe after reconnect.
func (m *Manager) Subscribe(ctx context.Context, channel string, params map[string]any) error {
	return m.Send(ctx, m.cfg.FormatSubscription("subscribe", channel, params), m.cfg.kind(PurposeSubscription))
}

// Unsubscribe sends an unsubscribe message.
func (m *Manager) Unsubscribe(ctx context.Context, channel string) error {
	return m.Send(ctx, m.cfg.FormatSubscription("unsubscribe", channel, nil), m.cfg.kind(PurposeSubscription))
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	case string:
		return []byte(p), nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}
		return data, nil
	}
}
