package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/logger"
)

const clientSendBuffer = 64

// Hub fans like updates out to connected WebSocket clients. Clients may
// narrow their feed to specific posts; a client with no subscriptions
// receives every update.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan LikeUpdate

	clients map[*Client]struct{}

	active atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan LikeUpdate, 256),
		clients:    make(map[*Client]struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's event loop in a background goroutine. The loop owns
// the client map; registration and broadcast are serialized through it.
func (h *Hub) Run() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-h.ctx.Done():
				for client := range h.clients {
					client.close()
				}
				return

			case client := <-h.register:
				h.clients[client] = struct{}{}
				h.active.Store(int64(len(h.clients)))

			case client := <-h.unregister:
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.close()
				}
				h.active.Store(int64(len(h.clients)))

			case update := <-h.broadcast:
				for client := range h.clients {
					if !client.wantsPost(update.PostID) {
						continue
					}
					select {
					case client.send <- update:
					default:
						// Slow consumer: drop it rather than stall the loop.
						delete(h.clients, client)
						client.close()
						logger.Warn("Dropping slow websocket client",
							zap.String("remote_addr", client.remoteAddr),
						)
					}
				}
				h.active.Store(int64(len(h.clients)))
			}
		}
	}()
	logger.Log.Info("Realtime hub started")
}

// Stop shuts the hub down and disconnects every client.
func (h *Hub) Stop() {
	h.cancel()
	h.wg.Wait()
	logger.Log.Info("Realtime hub stopped")
}

// Broadcast queues an update for fan-out. Never blocks; under extreme
// backlog updates are dropped, clients resync from the read API.
func (h *Hub) Broadcast(update LikeUpdate) {
	select {
	case h.broadcast <- update:
	default:
		logger.Warn("Realtime broadcast queue full, dropping update",
			zap.String("post_id", update.PostID),
		)
	}
}

// ActiveClients reports the current connection count.
func (h *Hub) ActiveClients() int64 {
	return h.active.Load()
}
