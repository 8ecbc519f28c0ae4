package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/iudanet/gophsync/internal/server/handlers"
)

// inbound covers every message a client may send.
type inbound struct {
	Headers         map[string]string `json:"headers"`
	QueryParameters map[string]string `json:"queryParameters"`
	Body            json.RawMessage   `json:"body"`
	Type            string            `json:"type"`
	Action          string            `json:"action"`
	Channel         string            `json:"channel"`
	RequestID       string            `json:"requestId"`
	Method          string            `json:"method"`
	Endpoint        string            `json:"endpoint"`
}

// response answers a request envelope.
type response struct {
	RequestID  string          `json:"requestId"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	StatusCode int             `json:"statusCode"`
}

type eventMessage struct {
	Event string    `json:"event"`
	Data  eventData `json:"data"`
}

type eventData struct {
	Record map[string]json.RawMessage `json:"record,omitempty"`
	Type   string                     `json:"type"`
	ID     string                     `json:"id"`
}

type controlMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Message string `json:"message,omitempty"`
}

func (h *Hub) handleMessage(ctx context.Context, c *client, kind websocket.MessageType, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.reply(c, kind, controlMessage{Type: "error", Message: "message is not valid JSON"})
		return
	}

	switch {
	case in.Type == "ping":
		h.reply(c, kind, controlMessage{Type: "pong"})
	case in.RequestID != "":
		h.reply(c, kind, h.serveRequest(ctx, c, in))
	case in.Action == "subscribe" && in.Channel != "":
		c.subscribe(in.Channel)
		h.logger.Debug("WebSocket subscription added", "owner", c.owner, "channel", in.Channel)
		h.reply(c, kind, controlMessage{Type: "subscribed", Channel: in.Channel})
	case in.Action == "unsubscribe" && in.Channel != "":
		c.unsubscribe(in.Channel)
		h.reply(c, kind, controlMessage{Type: "unsubscribed", Channel: in.Channel})
	default:
		h.reply(c, kind, controlMessage{Type: "error", Message: "unsupported message"})
	}
}

func (h *Hub) reply(c *client, kind websocket.MessageType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode WebSocket reply", "error", err)
		return
	}
	if !c.enqueue(kind, data) {
		h.logger.Warn("Dropping slow WebSocket client", "owner", c.owner)
		c.cancel()
	}
}

// serveRequest runs a request envelope through the REST handlers.
func (h *Hub) serveRequest(ctx context.Context, c *client, in inbound) response {
	resp := response{RequestID: in.RequestID}

	req, err := buildRequest(ctx, c.owner, in)
	if err != nil {
		resp.Status = "error"
		resp.StatusCode = http.StatusBadRequest
		resp.Error = err.Error()
		return resp
	}

	buf := newResponseBuffer()
	h.dispatch.ServeHTTP(buf, req)

	resp.StatusCode = buf.status
	resp.Status = "success"
	body := bytes.TrimSpace(buf.body.Bytes())
	if len(body) > 0 {
		if json.Valid(body) {
			resp.Data = json.RawMessage(body)
		} else {
			resp.Data, _ = json.Marshal(string(body))
		}
	}
	if buf.status >= http.StatusBadRequest {
		resp.Status = "error"
		resp.Error = errorText(body, buf.status)
	}

	h.logger.Debug("WebSocket request served",
		"owner", c.owner,
		"request_id", in.RequestID,
		"method", req.Method,
		"path", req.URL.Path,
		"status", buf.status,
	)
	return resp
}

func buildRequest(ctx context.Context, owner string, in inbound) (*http.Request, error) {
	method := strings.ToUpper(in.Method)
	if method == "" {
		method = http.MethodGet
	}
	if !strings.HasPrefix(in.Endpoint, "/") {
		return nil, fmt.Errorf("endpoint %q must be an absolute path", in.Endpoint)
	}

	target, err := url.Parse(in.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if len(in.QueryParameters) > 0 {
		query := target.Query()
		for k, v := range in.QueryParameters {
			query.Set(k, v)
		}
		target.RawQuery = query.Encode()
	}

	var body *bytes.Reader
	if len(in.Body) > 0 && string(in.Body) != "null" {
		body = bytes.NewReader(in.Body)
	}

	ctx = handlers.WithOwner(ctx, owner)
	ctx = handlers.WithCorrelationID(ctx, in.RequestID)

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target.String(), http.NoBody)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func errorText(body []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return http.StatusText(status)
}

// responseBuffer collects a handler response in memory.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
	wrote  bool
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header), status: http.StatusOK}
}

func (b *responseBuffer) Header() http.Header {
	return b.header
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.wrote {
		return
	}
	b.status = status
	b.wrote = true
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	b.wrote = true
	return b.body.Write(p)
}
