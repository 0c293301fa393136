package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/photofeed/backend/internal/models"
)

// PostRepository handles database operations for posts.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	PostExists(ctx context.Context, postID string) (bool, error)

	// ListFeed returns a page of the global feed, newest first.
	ListFeed(ctx context.Context, limit, offset int) ([]models.Post, error)

	// SamplePostIDs returns a random sample of post IDs; the reconciler uses
	// it to spread drift checks evenly over the corpus.
	SamplePostIDs(ctx context.Context, limit int) ([]string, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&post, "id = ?", postID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) PostExists(ctx context.Context, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Count(&count).Error
	return count > 0, err
}

func (r *postRepository) ListFeed(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) SamplePostIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Order("RANDOM()").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
