package likes

import (
	"context"

	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/models"
)

// Merger overlays live counts and liked statuses onto post content fetched
// (and possibly cached) elsewhere. It has no state and no cache of its own.
type Merger struct {
	counter *CounterService
}

// NewMerger creates a new merge layer over the counter service
func NewMerger(counter *CounterService) *Merger {
	return &Merger{counter: counter}
}

// Merge produces one view-ready record per input post, in input order, with
// the like count and liked status replaced by live values. Every other
// field passes through untouched. Posts the live store knows nothing about
// keep the counter service's defaults (0, false) — the output always has
// exactly the input's length and order.
//
// Liked statuses are only fetched when the actor is valid; anonymous views
// without a session still get live counts.
func (m *Merger) Merge(ctx context.Context, posts []models.Post, actor ActorID) []models.PostWithEngagement {
	merged := make([]models.PostWithEngagement, len(posts))
	if len(posts) == 0 {
		return merged
	}

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	counts, err := m.counter.Counts(ctx, postIDs)
	if err != nil {
		// Both stores failed. Serve the content with whatever count the post
		// row was loaded with; like counts are not worth an error page.
		logger.WarnWithFields("Serving posts without live counts", err)
		counts = nil
	}

	var statuses map[string]bool
	if actor.Valid() {
		statuses, err = m.counter.LikedStatuses(ctx, postIDs, actor)
		if err != nil {
			logger.WarnWithFields("Serving posts without liked statuses", err)
			statuses = nil
		}
	}

	for i, p := range posts {
		merged[i] = models.PostWithEngagement{Post: p}
		if counts != nil {
			merged[i].LikeCount = counts[p.ID]
		}
		if statuses != nil {
			merged[i].IsLiked = statuses[p.ID]
		}
	}
	return merged
}
