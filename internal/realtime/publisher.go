// Package realtime pushes best-effort like-count updates over Redis
// pub/sub so connected clients can repaint counters without polling.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
)

// Broker is the pub/sub capability the publisher needs; satisfied by
// cache.RedisClient.
type Broker interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// LikeUpdate is the wire shape broadcast after a successful toggle.
type LikeUpdate struct {
	PostID    string    `json:"post_id"`
	LikeCount int64     `json:"like_count"`
	Liked     bool      `json:"liked"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher broadcasts like updates. Everything here is fire-and-forget: a
// failed publish is logged and forgotten, never surfaced to the toggle.
type Publisher struct {
	broker Broker
}

// NewPublisher creates a new realtime publisher
func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker}
}

// PublishLikeUpdate broadcasts one toggle outcome on the updates channel.
func (p *Publisher) PublishLikeUpdate(ctx context.Context, postID string, count int64, liked bool) {
	if p == nil || p.broker == nil {
		return
	}

	payload, err := json.Marshal(LikeUpdate{
		PostID:    postID,
		LikeCount: count,
		Liked:     liked,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.ErrorWithFields("Failed to encode like update", err)
		return
	}

	if err := p.broker.Publish(ctx, likes.UpdatesChannel, payload); err != nil {
		logger.WarnWithFields("Failed to publish like update", err)
	}
}
