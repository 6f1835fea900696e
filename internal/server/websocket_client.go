package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketClient wraps a WebSocket connection that exchanges JSON messages.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // Serializes writes
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
// Messages larger than maxMessageSize bytes close the connection; 0 means no
// limit.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// ReadRequest reads the next message and decodes it as a request.
func (c *WebSocketClient) ReadRequest() (*Request, error) {
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return &req, nil
}

// Send writes an event as a JSON text message.
func (c *WebSocketClient) Send(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
