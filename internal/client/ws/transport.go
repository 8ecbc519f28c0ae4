package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iudanet/gophsync/internal/client/transport"
)

// Transport adapts Manager request/response correlation to transport.Transport.
type Transport struct {
	manager *Manager
	headers map[string]string
}

var _ transport.Transport = (*Transport)(nil)

// NewTransport wraps m. headers are attached to every request envelope.
func NewTransport(m *Manager, headers map[string]string) *Transport {
	return &Transport{manager: m, headers: headers}
}

// Create implements transport.Transport.
func (t *Transport) Create(ctx context.Context, endpoint string, body any) (*transport.Response, error) {
	return t.do(ctx, http.MethodPost, endpoint, body, nil)
}

// Update implements transport.Transport.
func (t *Transport) Update(ctx context.Context, endpoint, id string, body any) (*transport.Response, error) {
	return t.do(ctx, http.MethodPut, endpoint+"/"+url.PathEscape(id), body, nil)
}

// Delete implements transport.Transport.
func (t *Transport) Delete(ctx context.Context, endpoint, id string) (*transport.Response, error) {
	return t.do(ctx, http.MethodDelete, endpoint+"/"+url.PathEscape(id), nil, nil)
}

// List implements transport.Transport.
func (t *Transport) List(ctx context.Context, endpoint string, query transport.ListQuery) (*transport.Response, error) {
	return t.do(ctx, http.MethodGet, endpoint, nil, query.Values())
}

func (t *Transport) do(ctx context.Context, method, endpoint string, body any, query map[string]string) (*transport.Response, error) {
	opts := &RequestOptions{Headers: t.headers}
	if len(query) > 0 {
		opts.QueryParameters = query
	}

	resp, err := t.manager.Request(ctx, method, endpoint, body, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrNetwork, err)
	}
	return toTransportResponse(resp), nil
}

func toTransportResponse(resp *Response) *transport.Response {
	out := &transport.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Data,
	}
	if out.StatusCode == 0 {
		if resp.Status == "success" {
			out.StatusCode = http.StatusOK
		} else {
			out.StatusCode = http.StatusInternalServerError
		}
	}
	if !resp.OK() && resp.Error != "" && len(out.Body) == 0 {
		out.Body, _ = json.Marshal(map[string]string{"error": resp.Error})
	}
	return out
}
