package ws

import (
	"encoding/json"
	"fmt"
)

// State is the connection lifecycle state.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventKind classifies events emitted by Manager.
type EventKind int

const (
	EventConnectionEstablished EventKind = iota + 1
	EventConnectionClosed
	EventConnectionFailed
	EventReconnecting
	EventDataCreated
	EventDataUpdated
	EventDataDeleted
	EventSyncRequired
	EventNotification
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionEstablished:
		return "connection_established"
	case EventConnectionClosed:
		return "connection_closed"
	case EventConnectionFailed:
		return "connection_failed"
	case EventReconnecting:
		return "reconnecting"
	case EventDataCreated:
		return "data_created"
	case EventDataUpdated:
		return "data_updated"
	case EventDataDeleted:
		return "data_deleted"
	case EventSyncRequired:
		return "sync_required"
	case EventNotification:
		return "notification"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// ParseEventKind parses the name produced by EventKind.String.
func ParseEventKind(s string) (EventKind, error) {
	for k := EventConnectionEstablished; k <= EventNotification; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is emitted on the Manager event stream.
type Event struct {
	Err         error
	Name        string
	Message     string
	Data        json.RawMessage
	Kind        EventKind
	Attempt     int
	MaxAttempts int
}

// RecordType extracts the "type" (or "recordType") field of the event data, if any.
func (e Event) RecordType() string {
	if len(e.Data) == 0 {
		return ""
	}
	var payload struct {
		Type       string `json:"type"`
		RecordType string `json:"recordType"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return ""
	}
	if payload.RecordType != "" {
		return payload.RecordType
	}
	return payload.Type
}

// DefaultEventMap maps server event names to event kinds.
func DefaultEventMap() map[string]EventKind {
	return map[string]EventKind{
		"data_created":  EventDataCreated,
		"data_updated":  EventDataUpdated,
		"data_deleted":  EventDataDeleted,
		"sync_required": EventSyncRequired,
		"notification":  EventNotification,
	}
}

// Request is the outgoing request envelope.
type Request struct {
	Body            any               `json:"body,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	QueryParameters map[string]string `json:"queryParameters,omitempty"`
	RequestID       string            `json:"requestId"`
	Method          string            `json:"method"`
	Endpoint        string            `json:"endpoint"`
}

// Response is the incoming response envelope.
type Response struct {
	Headers    map[string]string `json:"headers,omitempty"`
	RequestID  string            `json:"requestId"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
	StatusCode int               `json:"statusCode,omitempty"`
}

// OK reports a successful response.
func (r *Response) OK() bool {
	if r.StatusCode != 0 {
		return r.StatusCode >= 200 && r.StatusCode < 300
	}
	return r.Status == "success"
}

// inbound covers every message shape the server may send.
type inbound struct {
	Response
	Event   string `json:"event"`
	Message string `json:"message"`
	Type    string `json:"type"`
}
