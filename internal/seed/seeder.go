// Package seed populates a development database with fake users, posts,
// and likes, then warms the counter store from the rows it created.
package seed

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/models"
)

// Options controls how much data the seeder creates.
type Options struct {
	Users        int
	Posts        int
	MaxLikes     int // upper bound of likes per post
	SessionRatio float64 // fraction of likes from anonymous sessions
}

// DefaultOptions returns a small but representative dataset.
func DefaultOptions() Options {
	return Options{Users: 25, Posts: 80, MaxLikes: 40, SessionRatio: 0.3}
}

// Seeder creates fake data for local development.
type Seeder struct {
	db      *gorm.DB
	counter *likes.CounterService
	opts    Options
}

// NewSeeder creates a seeder. counter may be nil to skip cache warming.
func NewSeeder(db *gorm.DB, counter *likes.CounterService, opts Options) *Seeder {
	if opts.Users <= 0 {
		opts = DefaultOptions()
	}
	return &Seeder{db: db, counter: counter, opts: opts}
}

// Run creates users, posts, and likes, and seeds the live counters from the
// created rows so the app starts warm.
func (s *Seeder) Run(ctx context.Context) error {
	users, err := s.seedUsers(ctx)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	posts, err := s.seedPosts(ctx, users)
	if err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	if err := s.seedLikes(ctx, users, posts); err != nil {
		return fmt.Errorf("seed likes: %w", err)
	}

	if s.counter != nil {
		postIDs := make([]string, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
		}
		if err := s.counter.InitializeFromDurable(ctx, postIDs); err != nil {
			return fmt.Errorf("warm counters: %w", err)
		}
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(posts)),
	)
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		users = append(users, models.User{
			Username:    fmt.Sprintf("%s%d", gofakeit.Username(), i),
			DisplayName: gofakeit.Name(),
			AvatarURL:   gofakeit.ImageURL(200, 200),
			Bio:         gofakeit.Sentence(8),
		})
	}
	if err := s.db.WithContext(ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User) ([]models.Post, error) {
	posts := make([]models.Post, 0, s.opts.Posts)
	for i := 0; i < s.opts.Posts; i++ {
		author := users[rand.Intn(len(users))]
		posts = append(posts, models.Post{
			UserID:   author.ID,
			Caption:  gofakeit.Sentence(10),
			ImageURL: gofakeit.ImageURL(1080, 1080),
		})
	}
	if err := s.db.WithContext(ctx).Create(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Seeder) seedLikes(ctx context.Context, users []models.User, posts []models.Post) error {
	for i := range posts {
		n := rand.Intn(s.opts.MaxLikes + 1)
		seen := make(map[string]bool, n)
		rows := make([]models.Like, 0, n)
		for j := 0; j < n; j++ {
			var actor likes.ActorID
			if rand.Float64() < s.opts.SessionRatio {
				actor = likes.Session(uuid.New().String())
			} else {
				actor = likes.Principal(users[rand.Intn(len(users))].ID)
			}
			if seen[actor.Tag()] {
				continue
			}
			seen[actor.Tag()] = true
			rows = append(rows, models.Like{PostID: posts[i].ID, ActorID: actor.Tag()})
		}
		if len(rows) == 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).
			Model(&models.Post{}).
			Where("id = ?", posts[i].ID).
			UpdateColumn("like_count", len(rows)).Error; err != nil {
			return err
		}
	}
	return nil
}
