// Package transport defines the request/response contract the sync layer uses
// to talk to the server. Concrete implementations live in client/api (HTTP)
// and client/ws (WebSocket).
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

//go:generate moq -out transport_mock.go . Transport

// Transport performs network operations against record endpoints.
//
// Implementations return a non-nil error only when no response was obtained
// (network failure, timeout, closed connection). Any HTTP-level status,
// including 4xx and 5xx, is reported through Response.
type Transport interface {
	// Create sends a new record to endpoint.
	Create(ctx context.Context, endpoint string, body any) (*Response, error)

	// Update sends a full or partial record to endpoint/{id}.
	Update(ctx context.Context, endpoint, id string, body any) (*Response, error)

	// Delete removes endpoint/{id}.
	Delete(ctx context.Context, endpoint, id string) (*Response, error)

	// List fetches records of endpoint matching query.
	List(ctx context.Context, endpoint string, query ListQuery) (*Response, error)
}

// ListQuery carries pull filters and pagination.
type ListQuery struct {
	Since  time.Time
	Limit  int
	Offset int
}

// Values returns the query as URL query parameters; zero fields are omitted.
func (q ListQuery) Values() map[string]string {
	params := make(map[string]string, 3)
	if !q.Since.IsZero() {
		params["since"] = q.Since.UTC().Format(time.RFC3339Nano)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		params["offset"] = strconv.Itoa(q.Offset)
	}
	return params
}

// Response is a transport-neutral response.
type Response struct {
	Headers    map[string]string
	Body       json.RawMessage
	StatusCode int
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsCreated reports 201 Created.
func (r *Response) IsCreated() bool {
	return r.StatusCode == http.StatusCreated
}

// IsNoContent reports 204 No Content.
func (r *Response) IsNoContent() bool {
	return r.StatusCode == http.StatusNoContent
}

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

// Err converts a non-2xx response into an *Error. It returns nil on success.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &Error{StatusCode: r.StatusCode, Message: errorMessage(r.Body)}
}

// Records extracts the list of record objects from a list response.
// Both a bare JSON array and an object of the form {"data": [...]} are accepted.
func (r *Response) Records() ([]json.RawMessage, error) {
	if len(r.Body) == 0 || string(r.Body) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(r.Body, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return envelope.Data, nil
}

// ErrNetwork wraps failures where no response was received.
var ErrNetwork = errors.New("network error")

// Error is a non-2xx response from the server.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// StatusCode extracts the status code from an *Error in err's chain.
// It returns 0 when err carries no status.
func StatusCode(err error) int {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.StatusCode
	}
	return 0
}

func errorMessage(body json.RawMessage) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	var text string
	if err := json.Unmarshal(body, &text); err == nil {
		return text
	}
	return string(body)
}
