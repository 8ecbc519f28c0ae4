package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Purpose selects which configured message kind a message is sent with.
type Purpose int

const (
	PurposeRequest Purpose = iota
	PurposeHeartbeat
	PurposeSubscription
	PurposeRaw
)

// ParsePurpose parses "request", "heartbeat", "subscription" or "raw".
func ParsePurpose(s string) (Purpose, error) {
	switch s {
	case "request":
		return PurposeRequest, nil
	case "heartbeat":
		return PurposeHeartbeat, nil
	case "subscription":
		return PurposeSubscription, nil
	case "raw":
		return PurposeRaw, nil
	default:
		return 0, fmt.Errorf("unknown message purpose %q", s)
	}
}

// SubscriptionFormatter builds the subscribe/unsubscribe message.
type SubscriptionFormatter func(action, channel string, params map[string]any) any

// Config configures Manager. Zero fields take defaults.
type Config struct {
	Header               http.Header
	MessageKinds         map[Purpose]MessageKind
	EventMap             map[string]EventKind
	FormatSubscription   SubscriptionFormatter
	URL                  string
	PingPayload          json.RawMessage
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	RequestTimeout       time.Duration
	MaxReconnectAttempts int
	// EventBuffer is the per-subscriber buffer of the event stream.
	EventBuffer int
}

// Default values.
const (
	DefaultPingInterval         = 30 * time.Second
	DefaultReconnectDelay       = time.Second
	DefaultRequestTimeout       = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	maxBackoffExponent          = 5
)

// DefaultPingPayload is sent as heartbeat when none is configured.
var DefaultPingPayload = json.RawMessage(`{"type":"ping"}`)

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	if len(c.PingPayload) == 0 {
		c.PingPayload = DefaultPingPayload
	}
	if c.EventMap == nil {
		c.EventMap = DefaultEventMap()
	}
	if c.FormatSubscription == nil {
		c.FormatSubscription = DefaultSubscriptionFormat
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
	return c
}

func (c Config) kind(p Purpose) MessageKind {
	if k, ok := c.MessageKinds[p]; ok {
		return k
	}
	return MessageText
}

// DefaultSubscriptionFormat produces {action, channel, parameters?}.
func DefaultSubscriptionFormat(action, channel string, params map[string]any) any {
	msg := map[string]any{
		"action":  action,
		"channel": channel,
	}
	if len(params) > 0 {
		msg["parameters"] = params
	}
	return msg
}

// BackoffDelay returns the reconnect delay for the given 1-based attempt:
// base * 2^min(attempt-1, 5).
func BackoffDelay(base time.Duration, attempt int) time.Duration {
	exp := attempt - 1
	if exp < 0 {
		exp = 0
	}
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	return base * time.Duration(1<<exp)
}
