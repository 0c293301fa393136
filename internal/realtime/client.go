package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/photofeed/backend/internal/logger"
)

const (
	writeWait = 10 * time.Second
	readWait  = 90 * time.Second
)

// clientCommand is what a connected client may send: narrowing or widening
// which posts it wants updates for.
type clientCommand struct {
	Action  string   `json:"action"` // subscribe | unsubscribe
	PostIDs []string `json:"post_ids"`
}

// Client is one WebSocket connection registered with the hub.
type Client struct {
	conn       *websocket.Conn
	hub        *Hub
	send       chan LikeUpdate
	remoteAddr string

	mu    sync.RWMutex
	posts map[string]struct{}

	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		conn:       conn,
		hub:        hub,
		send:       make(chan LikeUpdate, clientSendBuffer),
		remoteAddr: remoteAddr,
		posts:      make(map[string]struct{}),
	}
}

// wantsPost reports whether the client should receive updates for a post.
// No subscriptions means everything.
func (c *Client) wantsPost(postID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.posts) == 0 {
		return true
	}
	_, ok := c.posts[postID]
	return ok
}

func (c *Client) subscribe(postIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range postIDs {
		if id != "" {
			c.posts[id] = struct{}{}
		}
	}
}

func (c *Client) unsubscribe(postIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range postIDs {
		delete(c.posts, id)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close(websocket.StatusNormalClosure, "")
		}
	})
}

// writeLoop drains the send channel onto the wire. Exits when the hub
// closes the channel or a write fails.
func (c *Client) writeLoop(ctx context.Context) {
	for update := range c.send {
		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		err := wsjson.Write(writeCtx, c.conn, update)
		cancel()
		if err != nil {
			c.hub.unregister <- c
			return
		}
	}
}

// readLoop consumes subscription commands until the peer goes away, then
// unregisters the client.
func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
	}()

	for {
		readCtx, cancel := context.WithTimeout(ctx, readWait)
		var cmd clientCommand
		err := wsjson.Read(readCtx, c.conn, &cmd)
		cancel()
		if err != nil {
			return
		}

		switch cmd.Action {
		case "subscribe":
			c.subscribe(cmd.PostIDs)
		case "unsubscribe":
			c.unsubscribe(cmd.PostIDs)
		default:
			logger.Warn("Ignoring unknown websocket command: " + cmd.Action)
		}
	}
}
