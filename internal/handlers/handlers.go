// Package handlers exposes the like engine and the feed over HTTP. This is
// the boundary the client invocation layer talks to: toggles come in here,
// get an immediate atomic answer, and the durable mirror catches up in the
// background.
package handlers

import (
	"context"

	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/repository"
)

// Syncer is the slice of the sync service handlers need; satisfied by
// likes.SyncService.
type Syncer interface {
	Enqueue(outcome likes.Outcome)
	ReconcileAll(ctx context.Context, sample int) (checked, corrected int, err error)
}

// Publisher broadcasts like updates to connected clients; satisfied by
// realtime.Publisher.
type Publisher interface {
	PublishLikeUpdate(ctx context.Context, postID string, count int64, liked bool)
}

// Handlers holds the HTTP handler dependencies
type Handlers struct {
	counter   *likes.CounterService
	merger    *likes.Merger
	syncer    Syncer
	publisher Publisher
	posts     repository.PostRepository
	durable   repository.LikeRepository

	reconcileSample int
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	counter *likes.CounterService,
	merger *likes.Merger,
	syncer Syncer,
	publisher Publisher,
	posts repository.PostRepository,
	durable repository.LikeRepository,
	reconcileSample int,
) *Handlers {
	if reconcileSample <= 0 {
		reconcileSample = 100
	}
	return &Handlers{
		counter:         counter,
		merger:          merger,
		syncer:          syncer,
		publisher:       publisher,
		posts:           posts,
		durable:         durable,
		reconcileSample: reconcileSample,
	}
}
