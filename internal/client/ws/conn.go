package ws

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// MessageKind is the websocket frame type used for a message.
type MessageKind int

const (
	MessageText MessageKind = iota
	MessageBinary
)

func (k MessageKind) String() string {
	if k == MessageBinary {
		return "binary"
	}
	return "text"
}

// ParseMessageKind parses "text" or "binary".
func ParseMessageKind(s string) (MessageKind, error) {
	switch s {
	case "", "text":
		return MessageText, nil
	case "binary":
		return MessageBinary, nil
	default:
		return MessageText, fmt.Errorf("unknown message kind %q", s)
	}
}

// Conn is an established message-oriented connection.
type Conn interface {
	Read(ctx context.Context) (MessageKind, []byte, error)
	Write(ctx context.Context, kind MessageKind, data []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// CoderDialer dials with github.com/coder/websocket.
type CoderDialer struct {
	HTTPClient *http.Client
	// ReadLimit caps inbound message size; 0 keeps the library default.
	ReadLimit int64
}

// Dial implements Dialer.
func (d CoderDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, err
	}
	if d.ReadLimit > 0 {
		c.SetReadLimit(d.ReadLimit)
	}
	return &coderConn{c: c}, nil
}

type coderConn struct {
	c *websocket.Conn
}

func (c *coderConn) Read(ctx context.Context) (MessageKind, []byte, error) {
	typ, data, err := c.c.Read(ctx)
	if err != nil {
		return MessageText, nil, err
	}
	if typ == websocket.MessageBinary {
		return MessageBinary, data, nil
	}
	return MessageText, data, nil
}

func (c *coderConn) Write(ctx context.Context, kind MessageKind, data []byte) error {
	typ := websocket.MessageText
	if kind == MessageBinary {
		typ = websocket.MessageBinary
	}
	return c.c.Write(ctx, typ, data)
}

func (c *coderConn) Close() error {
	return c.c.Close(websocket.StatusNormalClosure, "")
}
