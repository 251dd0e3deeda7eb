package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/siddhantsaxena45/AI-Interviewer/internal/models"
)

const writeWait = 10 * time.Second

// Client is one websocket subscription belonging to a user.
type Client struct {
	Conn   *websocket.Conn
	UserID string
	mu     sync.Mutex
	hook   func(models.WSFrame)
}

func NewClient(conn *websocket.Conn, userID string) *Client {
	return &Client{Conn: conn, UserID: userID}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.WSFrame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) Send(frame models.WSFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return nil
	}
	if c.Conn == nil {
		return nil
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(frame)
}
