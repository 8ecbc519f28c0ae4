package ws

import "errors"

var (
	// ErrNotConnected is returned by Send and Request when the connection is not open
	ErrNotConnected = errors.New("websocket is not connected")

	// ErrConnectionClosed resolves pending requests when the connection goes away
	ErrConnectionClosed = errors.New("websocket connection closed")

	// ErrRequestTimeout resolves a pending request that got no response in time
	ErrRequestTimeout = errors.New("websocket request timed out")

	// ErrReconnectExhausted is carried by the terminal ConnectionFailed event
	ErrReconnectExhausted = errors.New("maximum reconnect attempts reached")
)
