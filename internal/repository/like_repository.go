package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photofeed/backend/internal/models"
)

// LikeRepository handles all durable-store operations for likes. It is the
// Postgres side of the counter engine: rows in the likes table mirror Redis
// set membership, and posts.like_count mirrors the Redis counter.
type LikeRepository interface {
	// Per-pair records
	UpsertLike(ctx context.Context, postID, actorID string) error
	DeleteLike(ctx context.Context, postID, actorID string) error
	HasLike(ctx context.Context, postID, actorID string) (bool, error)

	// Durable count column on the post row
	SetLikeCount(ctx context.Context, postID string, count int64) error
	GetLikeCount(ctx context.Context, postID string) (int64, error)
	GetLikeCounts(ctx context.Context, postIDs []string) (map[string]int64, error)

	// Batch membership for one actor
	GetLikedSet(ctx context.Context, actorID string, postIDs []string) (map[string]bool, error)

	// Full listings, used by cold-start seeding and actor migration
	ListActorsForPost(ctx context.Context, postID string) ([]string, error)
	ListPostsForActor(ctx context.Context, actorID string) ([]string, error)

	// CountLikes counts rows for a post directly; reconciliation uses it to
	// cross-check the like_count column against ground truth.
	CountLikes(ctx context.Context, postID string) (int64, error)

	// MigrateActor rewrites every like row from one actor ID to another,
	// dropping rows that would collide with an existing (post, actor) pair.
	MigrateActor(ctx context.Context, fromActorID, toActorID string) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// UpsertLike inserts a like row, treating a duplicate as success. Upsert
// rather than insert so that two syncs for the same pair landing out of
// order cannot fail the second one.
func (r *likeRepository) UpsertLike(ctx context.Context, postID, actorID string) error {
	if postID == "" || actorID == "" {
		return ErrInvalidInput
	}
	like := models.Like{PostID: postID, ActorID: actorID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "actor_id"}},
			DoNothing: true,
		}).
		Create(&like).Error
}

// DeleteLike removes a like row. An already-absent row is success.
func (r *likeRepository) DeleteLike(ctx context.Context, postID, actorID string) error {
	if postID == "" || actorID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).
		Where("post_id = ? AND actor_id = ?", postID, actorID).
		Delete(&models.Like{}).Error
}

// HasLike reports whether a like row exists for the pair.
func (r *likeRepository) HasLike(ctx context.Context, postID, actorID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND actor_id = ?", postID, actorID).
		Count(&count).Error
	return count > 0, err
}

// SetLikeCount overwrites the durable count column with an absolute value.
// SET, never increment: every write lands the counter store's authoritative
// value, so a missed or duplicated sync self-heals on the next one instead
// of compounding.
func (r *likeRepository) SetLikeCount(ctx context.Context, postID string, count int64) error {
	if postID == "" {
		return ErrInvalidInput
	}
	if count < 0 {
		count = 0
	}
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("like_count", count).Error
}

// GetLikeCount reads the durable count column for one post.
func (r *likeRepository) GetLikeCount(ctx context.Context, postID string) (int64, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Select("like_count").
		First(&post, "id = ?", postID).Error
	if err == gorm.ErrRecordNotFound {
		return 0, ErrPostNotFound
	}
	return post.LikeCount, err
}

// GetLikeCounts reads durable counts for many posts in one query. Unknown
// posts are simply absent from the result map.
func (r *likeRepository) GetLikeCounts(ctx context.Context, postIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	var rows []models.Post
	if err := r.db.WithContext(ctx).
		Select("id", "like_count").
		Where("id IN ?", postIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ID] = row.LikeCount
	}
	return counts, nil
}

// GetLikedSet returns which of the given posts the actor has liked.
func (r *likeRepository) GetLikedSet(ctx context.Context, actorID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if actorID == "" || len(postIDs) == 0 {
		return liked, nil
	}
	var rows []models.Like
	if err := r.db.WithContext(ctx).
		Select("post_id").
		Where("actor_id = ? AND post_id IN ?", actorID, postIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		liked[row.PostID] = true
	}
	return liked, nil
}

// ListActorsForPost returns every actor with a like row for the post.
func (r *likeRepository) ListActorsForPost(ctx context.Context, postID string) ([]string, error) {
	var actors []string
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Pluck("actor_id", &actors).Error
	return actors, err
}

// ListPostsForActor returns every post the actor has a like row for.
func (r *likeRepository) ListPostsForActor(ctx context.Context, actorID string) ([]string, error) {
	var posts []string
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("actor_id = ?", actorID).
		Pluck("post_id", &posts).Error
	return posts, err
}

// CountLikes counts like rows for a post.
func (r *likeRepository) CountLikes(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	return count, err
}

// MigrateActor moves like rows from one actor to another inside a
// transaction. Rows that would violate the (post, actor) unique index are
// deleted instead: the destination actor already liked those posts.
func (r *likeRepository) MigrateActor(ctx context.Context, fromActorID, toActorID string) (int64, error) {
	if fromActorID == "" || toActorID == "" {
		return 0, ErrInvalidInput
	}
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Drop source rows whose destination pair already exists
		if err := tx.Where(
			"actor_id = ? AND post_id IN (?)",
			fromActorID,
			tx.Model(&models.Like{}).Select("post_id").Where("actor_id = ?", toActorID),
		).Delete(&models.Like{}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Like{}).
			Where("actor_id = ?", fromActorID).
			UpdateColumn("actor_id", toActorID)
		if res.Error != nil {
			return res.Error
		}
		moved = res.RowsAffected
		return nil
	})
	return moved, err
}
