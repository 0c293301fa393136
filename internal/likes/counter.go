package likes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/metrics"
)

var (
	// ErrInvalidPostID indicates an empty post identifier
	ErrInvalidPostID = errors.New("post id must not be empty")
	// ErrInvalidActor indicates an empty or untagged actor identifier
	ErrInvalidActor = errors.New("actor id is invalid")
)

// ToggleResult is what a successful toggle reports back to the caller.
type ToggleResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"like_count"`
}

// MigrationResult reports what an actor migration did.
type MigrationResult struct {
	// Moved are posts whose membership was rewritten to the new actor.
	Moved []string `json:"moved"`
	// Merged are posts the new actor had already liked; the duplicate
	// membership collapsed and their counts dropped by one.
	Merged []string `json:"merged"`
}

// CounterService provides atomic toggle and batch-read operations over the
// live counters. Redis is the source of truth while it is reachable; reads
// degrade to the durable mirror when it is not, and writes fail closed.
type CounterService struct {
	atomic  AtomicStore
	durable DurableStore
}

// NewCounterService creates a new counter service
func NewCounterService(atomic AtomicStore, durable DurableStore) *CounterService {
	return &CounterService{atomic: atomic, durable: durable}
}

// Toggle flips the actor's like on a post. The membership check and the
// count adjustment run as one atomic script, so concurrent toggles on the
// same post serialize on the store side. On any store error nothing has
// changed and the error is returned; there is no write fallback, because
// writing live counts straight to Postgres would reintroduce the drift this
// engine exists to prevent.
//
// Toggle is deliberately a toggle, not set-to-liked: two immediate calls
// like then unlike. Debouncing double taps is the client's job.
func (s *CounterService) Toggle(ctx context.Context, postID string, actor ActorID) (ToggleResult, error) {
	if postID == "" {
		return ToggleResult{}, ErrInvalidPostID
	}
	if !actor.Valid() {
		return ToggleResult{}, ErrInvalidActor
	}

	m := metrics.Get()
	start := time.Now()
	count, liked, err := s.atomic.ToggleMember(ctx,
		countKey(postID), membersKey(postID), actorKey(actor), actor.Tag(), postID)
	m.ToggleDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		m.TogglesTotal.WithLabelValues("error").Inc()
		logger.Error("Like toggle failed",
			logger.WithPostID(postID),
			logger.WithActor(actor.Tag()),
			zap.Error(err),
		)
		return ToggleResult{}, fmt.Errorf("toggle like: %w", err)
	}

	if liked {
		m.TogglesTotal.WithLabelValues("liked").Inc()
	} else {
		m.TogglesTotal.WithLabelValues("unliked").Inc()
	}
	return ToggleResult{Liked: liked, Count: count}, nil
}

// Count returns the live like count for one post. A missing counter reads
// as zero; that is the documented cold-start default, and no write happens
// on the read path.
func (s *CounterService) Count(ctx context.Context, postID string) (int64, error) {
	if postID == "" {
		return 0, ErrInvalidPostID
	}
	counts, err := s.Counts(ctx, []string{postID})
	if err != nil {
		return 0, err
	}
	return counts[postID], nil
}

// Counts returns live like counts for many posts in one MGET round trip.
// If Redis is unreachable every requested count is read from the durable
// mirror instead; those values are best-effort and may lag by the sync
// latency. Unknown posts map to zero in either mode.
func (s *CounterService) Counts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	keys := make([]string, len(postIDs))
	for i, id := range postIDs {
		if id == "" {
			return nil, ErrInvalidPostID
		}
		keys[i] = countKey(id)
	}

	vals, err := s.atomic.GetCounts(ctx, keys)
	if err != nil {
		metrics.Get().CounterFallbacks.WithLabelValues("count").Inc()
		logger.WarnWithFields("Counter store unreachable, falling back to durable counts", err)
		return s.durableCounts(ctx, postIDs)
	}

	for i, id := range postIDs {
		if vals[i] != nil {
			result[id] = *vals[i]
		} else {
			result[id] = 0
		}
	}
	return result, nil
}

func (s *CounterService) durableCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts, err := s.durable.GetLikeCounts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("durable count fallback: %w", err)
	}
	result := make(map[string]int64, len(postIDs))
	for _, id := range postIDs {
		result[id] = counts[id]
	}
	return result, nil
}

// IsLiked reports whether the actor currently likes the post, with the same
// durable fallback policy as Counts.
func (s *CounterService) IsLiked(ctx context.Context, postID string, actor ActorID) (bool, error) {
	if postID == "" {
		return false, ErrInvalidPostID
	}
	if !actor.Valid() {
		return false, ErrInvalidActor
	}

	liked, err := s.atomic.IsMember(ctx, membersKey(postID), actor.Tag())
	if err != nil {
		metrics.Get().CounterFallbacks.WithLabelValues("status").Inc()
		logger.WarnWithFields("Counter store unreachable, falling back to durable membership", err)
		return s.durable.HasLike(ctx, postID, actor.Tag())
	}
	return liked, nil
}

// LikedStatuses reports, for each of the given posts, whether the actor
// likes it. One SMISMEMBER against the actor's reverse index regardless of
// how many posts are asked about.
func (s *CounterService) LikedStatuses(ctx context.Context, postIDs []string, actor ActorID) (map[string]bool, error) {
	result := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}
	if !actor.Valid() {
		return nil, ErrInvalidActor
	}

	flags, err := s.atomic.AreMembers(ctx, actorKey(actor), postIDs)
	if err != nil {
		metrics.Get().CounterFallbacks.WithLabelValues("status").Inc()
		logger.WarnWithFields("Counter store unreachable, falling back to durable statuses", err)
		liked, derr := s.durable.GetLikedSet(ctx, actor.Tag(), postIDs)
		if derr != nil {
			return nil, fmt.Errorf("durable status fallback: %w", derr)
		}
		for _, id := range postIDs {
			result[id] = liked[id]
		}
		return result, nil
	}

	for i, id := range postIDs {
		result[id] = flags[i]
	}
	return result, nil
}

// SyncFromDurable rebuilds one post's counter, membership set, and the
// touched reverse indexes from the durable mirror. Last writer wins.
//
// This is recovery tooling: running it against a warm, correct Redis can
// erase toggles that raced it. Call it at cold start or after Redis data
// loss, never casually.
func (s *CounterService) SyncFromDurable(ctx context.Context, postID string) error {
	if postID == "" {
		return ErrInvalidPostID
	}

	actors, err := s.durable.ListActorsForPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("list durable actors: %w", err)
	}

	if err := s.atomic.ReplaceSet(ctx, membersKey(postID), actors); err != nil {
		return fmt.Errorf("replace membership set: %w", err)
	}
	// Cardinality of the rebuilt set, not the possibly-lagging count column.
	if err := s.atomic.SetCount(ctx, countKey(postID), int64(len(actors))); err != nil {
		return fmt.Errorf("seed counter: %w", err)
	}

	for _, tag := range actors {
		actor, perr := ParseActorTag(tag)
		if perr != nil {
			logger.WarnWithFields("Skipping malformed actor tag during seed", perr)
			continue
		}
		if err := s.atomic.AddMember(ctx, actorKey(actor), postID); err != nil {
			return fmt.Errorf("seed reverse index: %w", err)
		}
	}

	logger.Log.Info("Seeded counter from durable store",
		logger.WithPostID(postID),
		zap.Int("members", len(actors)),
	)
	return nil
}

// InitializeFromDurable seeds many posts, continuing past individual
// failures. The same warm-store hazard as SyncFromDurable applies.
func (s *CounterService) InitializeFromDurable(ctx context.Context, postIDs []string) error {
	var failed int
	for _, id := range postIDs {
		if err := s.SyncFromDurable(ctx, id); err != nil {
			failed++
			logger.ErrorWithFields("Cold-start seed failed for post "+id, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("cold-start seeding failed for %d of %d posts", failed, len(postIDs))
	}
	return nil
}

// MigrateActor moves every live membership from one actor to another,
// typically an anonymous session that just authenticated into its
// principal. Each post's swap is atomic; posts the destination actor had
// already liked merge and lose one count. The caller is responsible for
// migrating the durable rows and syncing merged counts afterwards.
func (s *CounterService) MigrateActor(ctx context.Context, from, to ActorID) (MigrationResult, error) {
	var res MigrationResult
	if !from.Valid() || !to.Valid() {
		return res, ErrInvalidActor
	}
	if from == to {
		return res, nil
	}

	postIDs, err := s.atomic.Members(ctx, actorKey(from))
	if err != nil {
		return res, fmt.Errorf("read actor index: %w", err)
	}

	for _, postID := range postIDs {
		_, moved, merged, err := s.atomic.MoveMember(ctx,
			countKey(postID), membersKey(postID), from.Tag(), to.Tag())
		if err != nil {
			// Partial migration is recoverable: the remaining memberships
			// stay on the session actor and a retry picks them up.
			return res, fmt.Errorf("migrate membership for post %s: %w", postID, err)
		}
		if !moved {
			continue
		}
		if merged {
			res.Merged = append(res.Merged, postID)
		} else {
			res.Moved = append(res.Moved, postID)
			if err := s.atomic.AddMember(ctx, actorKey(to), postID); err != nil {
				return res, fmt.Errorf("extend actor index: %w", err)
			}
		}
		if err := s.atomic.RemoveMember(ctx, actorKey(from), postID); err != nil {
			return res, fmt.Errorf("shrink actor index: %w", err)
		}
	}

	logger.Log.Info("Migrated actor likes",
		logger.WithActor(from.Tag()),
		zap.String("to", to.Tag()),
		zap.Int("moved", len(res.Moved)),
		zap.Int("merged", len(res.Merged)),
	)
	return res, nil
}
