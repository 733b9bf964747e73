package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Client is one live feed connection.
type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte

	// courses restricts delivery to events for these course ids; nil means
	// every course.
	courses map[uuid.UUID]struct{}
	mu      sync.Mutex
	dropped int
}

func NewClient(conn *websocket.Conn, userID uuid.UUID, courseIDs []uuid.UUID) *Client {
	c := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
	if courseIDs != nil {
		c.courses = make(map[uuid.UUID]struct{}, len(courseIDs))
		for _, id := range courseIDs {
			c.courses[id] = struct{}{}
		}
	}
	return c
}

// Wants reports whether an event for courseID should reach this client.
// Events without a course are always delivered.
func (c *Client) Wants(courseID uuid.NullUUID) bool {
	if c.courses == nil || !courseID.Valid {
		return true
	}
	_, ok := c.courses[courseID.UUID]
	return ok
}

// WriteLoop drains Send and pings until ctx is done.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg := <-c.Send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}

func (c *Client) close() {
	c.mu.Lock()
	_ = c.Conn.Close()
	c.mu.Unlock()
}

// SendMessage queues msg without blocking. A slow client loses messages
// rather than stalling the publisher.
func (c *Client) SendMessage(msg []byte) bool {
	select {
	case c.Send <- msg:
		return true
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		return false
	}
}

func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
