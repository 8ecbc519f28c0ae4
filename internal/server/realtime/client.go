package realtime

import (
	"context"
	"sync"

	"github.com/coder/websocket"
)

type outbound struct {
	data []byte
	kind websocket.MessageType
}

// client is one WebSocket connection.
type client struct {
	conn   *websocket.Conn
	send   chan outbound
	cancel context.CancelFunc
	subs   map[string]struct{}
	owner  string
	mu     sync.Mutex
}

func newClient(conn *websocket.Conn, owner string, buffer int, cancel context.CancelFunc) *client {
	return &client{
		conn:   conn,
		owner:  owner,
		send:   make(chan outbound, buffer),
		cancel: cancel,
		subs:   make(map[string]struct{}),
	}
}

// enqueue ставит сообщение в очередь без блокировки; false - очередь переполнена
func (c *client) enqueue(kind websocket.MessageType, data []byte) bool {
	select {
	case c.send <- outbound{kind: kind, data: data}:
		return true
	default:
		return false
	}
}

func (c *client) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[channel] = struct{}{}
}

func (c *client) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, channel)
}

// subscribed reports whether changes of recordType reach this client.
// A client without subscriptions receives everything of its owner.
func (c *client) subscribed(recordType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subs) == 0 {
		return true
	}
	_, all := c.subs[AllChannels]
	_, one := c.subs[recordType]
	return all || one
}
