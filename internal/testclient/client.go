// Package testclient drives a running levelgen WebSocket server for
// integration tests.
package testclient

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/levelforge/internal/server"
)

// TestClient represents a test client connection to the generation server
type TestClient struct {
	Name   string
	conn   *websocket.Conn
	events []*server.Event
	mu     sync.Mutex
	sendMu sync.Mutex
	done   chan struct{}
	closed sync.Once
}

// NewTestClient connects to address, which is either host:port or a full
// ws:// URL.
func NewTestClient(name string, address string) (*TestClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name: name,
		conn: conn,
		done: make(chan struct{}),
	}

	// Start reading events in background
	go client.readEvents()

	return client, nil
}

func wsURL(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}
	return "ws://" + address + "/ws"
}

// readEvents continuously reads events from the server
func (c *TestClient) readEvents() {
	defer close(c.done)
	for {
		var ev server.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		c.mu.Lock()
		c.events = append(c.events, &ev)
		c.mu.Unlock()
	}
}

// Send sends a request to the server
func (c *TestClient) Send(req server.Request) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteJSON(req)
}

// Generate asks for a level with the given seed and room amount
func (c *TestClient) Generate(seed int64, rooms int) error {
	return c.Send(server.Request{Type: server.RequestGenerate, Seed: &seed, RoomAmount: &rooms})
}

// GetEvents returns all events received so far
func (c *TestClient) GetEvents() []*server.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]*server.Event, len(c.events))
	copy(result, c.events)
	return result
}

// ClearEvents clears the event buffer
func (c *TestClient) ClearEvents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// CountEvents returns how many received events have the given type
func (c *TestClient) CountEvents(eventType string) int {
	n := 0
	for _, ev := range c.GetEvents() {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// WaitForEvent waits for the first event of any of the given types. The
// event is returned with ok true, or nil with ok false on timeout or when
// the connection closes.
func (c *TestClient) WaitForEvent(timeout time.Duration, types ...string) (*server.Event, bool) {
	deadline := time.Now().Add(timeout)

	for {
		for _, ev := range c.GetEvents() {
			for _, t := range types {
				if ev.Type == t {
					return ev, true
				}
			}
		}
		if !time.Now().Before(deadline) {
			return nil, false
		}
		select {
		case <-c.done:
			// Pick up anything that arrived just before the close
			deadline = time.Now()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// Disconnected reports whether the server closed the connection
func (c *TestClient) Disconnected() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close closes the client connection
func (c *TestClient) Close() error {
	var err error
	c.closed.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// PrintEvents prints all events (for debugging)
func (c *TestClient) PrintEvents() {
	fmt.Printf("\n=== Events for %s ===\n", c.Name)
	for i, ev := range c.GetEvents() {
		fmt.Printf("[%d] %s", i, ev.Type)
		if ev.Error != "" {
			fmt.Printf(" error=%q", ev.Error)
		}
		fmt.Println()
	}
	fmt.Println("======================")
}
