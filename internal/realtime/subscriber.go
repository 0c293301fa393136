package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
)

// PubSubBroker opens Redis subscriptions; satisfied by cache.RedisClient.
type PubSubBroker interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Subscriber pumps like updates from the Redis pub/sub channel into the
// hub. Every server instance runs one, so a toggle handled anywhere in the
// fleet reaches clients connected everywhere.
type Subscriber struct {
	broker PubSubBroker
	hub    *Hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubscriber creates a subscriber feeding the given hub.
func NewSubscriber(broker PubSubBroker, hub *Hub) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscriber{
		broker: broker,
		hub:    hub,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start opens the subscription and begins pumping in the background.
func (s *Subscriber) Start() {
	pubsub := s.broker.Subscribe(s.ctx, likes.UpdatesChannel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-s.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var update LikeUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
					logger.WarnWithFields("Discarding malformed like update", err)
					continue
				}
				s.hub.Broadcast(update)
			}
		}
	}()
	logger.Log.Info("Realtime subscriber started")
}

// Stop closes the subscription and waits for the pump to exit.
func (s *Subscriber) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Log.Info("Realtime subscriber stopped")
}
