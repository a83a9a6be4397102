package realtime

import (
	"fmt"
	"sync"
)

// Client is a connection handle: the room broadcaster's view of one connected
// peer. Events pushed to it are drained by the transport's write loop. It
// never holds session content, only the outbound queue.
type Client struct {
	id     string
	events chan Event
	mu     sync.Mutex
	closed bool
}

// NewClient creates a Client with the given connection id.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a Client with an open outbound event channel.
func NewClient(id string, bufferSize int) *Client {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Client{
		id:     id,
		events: make(chan Event, bufferSize),
	}
}

// ID returns the connection's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Send enqueues an event for delivery to the peer.
//
// Postcondition: The event is queued, or an error if the client is closed or
// its buffer is full. A full buffer means the peer is not draining; the
// broadcaster closes such a handle and the transport then disconnects the
// peer.
func (c *Client) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client %s is closed", c.id)
	}
	select {
	case c.events <- ev:
		return nil
	default:
		return fmt.Errorf("client %s event buffer full", c.id)
	}
}

// Events returns the read-only outbound channel. The transport's write loop
// reads from this channel and writes each event to the websocket.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close marks the client as closed and closes the outbound channel.
//
// Postcondition: The events channel is closed. Further Send calls return an
// error. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

// IsClosed reports whether the client has been closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
