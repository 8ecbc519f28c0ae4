// Package api implements transport.Transport over HTTP/JSON.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iudanet/gophsync/internal/client/transport"
)

const (
	// DefaultTimeout - таймаут HTTP запроса по умолчанию
	DefaultTimeout = 30 * time.Second

	// HeaderCorrelationID связывает запрос клиента с логами сервера
	HeaderCorrelationID = "X-Correlation-ID"
)

// ErrTokenExpired is returned without sending the request when the bearer token is past its exp claim.
var ErrTokenExpired = errors.New("access token expired")

var _ transport.Transport = (*Client)(nil)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	baseURL    string
	token      string
	mu         sync.RWMutex
}

// Option configures Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Create sends POST endpoint.
func (c *Client) Create(ctx context.Context, endpoint string, body any) (*transport.Response, error) {
	return c.doRequest(ctx, http.MethodPost, endpoint, nil, body)
}

// Update sends PUT endpoint/{id}.
func (c *Client) Update(ctx context.Context, endpoint, id string, body any) (*transport.Response, error) {
	return c.doRequest(ctx, http.MethodPut, endpoint+"/"+url.PathEscape(id), nil, body)
}

// Delete sends DELETE endpoint/{id}.
func (c *Client) Delete(ctx context.Context, endpoint, id string) (*transport.Response, error) {
	return c.doRequest(ctx, http.MethodDelete, endpoint+"/"+url.PathEscape(id), nil, nil)
}

// List sends GET endpoint with since/limit/offset query parameters.
func (c *Client) List(ctx context.Context, endpoint string, query transport.ListQuery) (*transport.Response, error) {
	params := url.Values{}
	for k, v := range query.Values() {
		params.Set(k, v)
	}
	return c.doRequest(ctx, http.MethodGet, endpoint, params, nil)
}

// doRequest выполняет HTTP запрос. Ошибка возвращается только если ответ не получен.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, body any) (*transport.Response, error) {
	token, err := c.bearer()
	if err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	correlationID := uuid.NewString()
	req.Header.Set(HeaderCorrelationID, correlationID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", "method", method, "path", path, "correlation_id", correlationID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", transport.ErrNetwork, method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", transport.ErrNetwork, err)
	}

	c.logger.Debug("Request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"correlation_id", correlationID,
		"duration", c.now().Sub(start),
	)

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	out := &transport.Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
	}
	if len(bytes.TrimSpace(respBody)) > 0 {
		out.Body = json.RawMessage(respBody)
	}
	return out, nil
}

// bearer returns the current token, failing fast if its exp claim has passed.
// The signature is not verified here; that is the server's job.
func (c *Client) bearer() (string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return "", nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// не JWT (например, статический API ключ) - отправляем как есть
		return token, nil
	}

	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && !exp.After(c.now()) {
		return "", ErrTokenExpired
	}
	return token, nil
}
