// Package container provides dependency management for the Photofeed
// backend: one place that owns the stores, the like engine, and shutdown
// ordering.
package container

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/photofeed/backend/internal/cache"
	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/realtime"
	"github.com/photofeed/backend/internal/repository"
)

// Container holds all application dependencies and provides type-safe access.
type Container struct {
	// Core infrastructure
	db     *gorm.DB
	logger *zap.Logger
	cache  *cache.RedisClient

	// Repositories
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository

	// Like engine
	counter    *likes.CounterService
	syncer     *likes.SyncService
	reconciler *likes.Reconciler
	merger     *likes.Merger
	publisher  *realtime.Publisher

	// Lifecycle hooks, run in reverse registration order on Cleanup
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container
func New() *Container {
	return &Container{}
}

// SetDB registers the database connection
func (c *Container) SetDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// SetLogger registers the logger
func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = l
	return c
}

// Logger returns the logger instance
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.logger == nil {
		return logger.Log
	}
	return c.logger
}

// SetCache registers the Redis client
func (c *Container) SetCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// Cache returns the Redis client
func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// SetLikeRepo registers the like repository
func (c *Container) SetLikeRepo(r repository.LikeRepository) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.likeRepo = r
	return c
}

// LikeRepo returns the like repository
func (c *Container) LikeRepo() repository.LikeRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.likeRepo
}

// SetPostRepo registers the post repository
func (c *Container) SetPostRepo(r repository.PostRepository) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postRepo = r
	return c
}

// PostRepo returns the post repository
func (c *Container) PostRepo() repository.PostRepository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.postRepo
}

// SetCounter registers the counter service
func (c *Container) SetCounter(s *likes.CounterService) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter = s
	return c
}

// Counter returns the counter service
func (c *Container) Counter() *likes.CounterService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counter
}

// SetSyncer registers the durable sync service
func (c *Container) SetSyncer(s *likes.SyncService) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncer = s
	return c
}

// Syncer returns the durable sync service
func (c *Container) Syncer() *likes.SyncService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.syncer
}

// SetReconciler registers the reconciler
func (c *Container) SetReconciler(r *likes.Reconciler) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconciler = r
	return c
}

// Reconciler returns the reconciler
func (c *Container) Reconciler() *likes.Reconciler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconciler
}

// SetMerger registers the merge layer
func (c *Container) SetMerger(m *likes.Merger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.merger = m
	return c
}

// Merger returns the merge layer
func (c *Container) Merger() *likes.Merger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.merger
}

// SetPublisher registers the realtime publisher
func (c *Container) SetPublisher(p *realtime.Publisher) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = p
	return c
}

// Publisher returns the realtime publisher
func (c *Container) Publisher() *realtime.Publisher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publisher
}

// RegisterCleanup adds a function to run during shutdown
func (c *Container) RegisterCleanup(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Cleanup runs all registered cleanup functions in reverse order
func (c *Container) Cleanup(ctx context.Context) {
	c.mu.RLock()
	funcs := make([]func(context.Context) error, len(c.cleanupFuncs))
	copy(funcs, c.cleanupFuncs)
	c.mu.RUnlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.ErrorWithFields("Cleanup step failed", err)
		}
	}
}
