package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/photofeed/backend/internal/cache"
	"github.com/photofeed/backend/internal/config"
	"github.com/photofeed/backend/internal/container"
	"github.com/photofeed/backend/internal/database"
	"github.com/photofeed/backend/internal/handlers"
	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/metrics"
	"github.com/photofeed/backend/internal/middleware"
	"github.com/photofeed/backend/internal/realtime"
	"github.com/photofeed/backend/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// Fine in production, env comes from the process environment there
		_ = err
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("Photofeed backend starting")

	metrics.Initialize()

	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.FatalWithFields("Failed to connect to Redis", err)
	}

	if cfg.JWTSecret == "" {
		logger.FatalWithFields("JWT_SECRET environment variable is required", nil)
	}

	// Wire the engine
	likeRepo := repository.NewLikeRepository(database.DB)
	postRepo := repository.NewPostRepository(database.DB)
	counter := likes.NewCounterService(redisClient, likeRepo)
	syncer := likes.NewSyncService(likeRepo, redisClient, postRepo, cfg.SyncWorkers, cfg.SyncQueueSize)
	reconciler := likes.NewReconciler(syncer, cfg.ReconcileInterval, cfg.ReconcileSample)
	merger := likes.NewMerger(counter)
	publisher := realtime.NewPublisher(redisClient)
	hub := realtime.NewHub()
	subscriber := realtime.NewSubscriber(redisClient, hub)

	c := container.New().
		SetLogger(logger.Log).
		SetDB(database.DB).
		SetCache(redisClient).
		SetLikeRepo(likeRepo).
		SetPostRepo(postRepo).
		SetCounter(counter).
		SetSyncer(syncer).
		SetReconciler(reconciler).
		SetMerger(merger).
		SetPublisher(publisher)

	syncer.Start()
	c.RegisterCleanup(func(context.Context) error { syncer.Stop(); return nil })

	reconciler.Start()
	c.RegisterCleanup(func(context.Context) error { reconciler.Stop(); return nil })

	hub.Run()
	subscriber.Start()
	c.RegisterCleanup(func(context.Context) error { subscriber.Stop(); hub.Stop(); return nil })

	c.RegisterCleanup(func(context.Context) error { return redisClient.Close() })
	c.RegisterCleanup(func(context.Context) error { return database.Close() })

	h := handlers.NewHandlers(counter, merger, syncer, publisher, postRepo, likeRepo, cfg.ReconcileSample)
	ws := realtime.NewWSHandler(hub)

	router := setupRouter(cfg, h, ws)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Log.Info("HTTP server listening on :" + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Forced shutdown", err)
	}
	c.Cleanup(ctx)
}

func setupRouter(cfg *config.Config, h *handlers.Handlers, ws *realtime.WSHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.ActorMiddleware([]byte(cfg.JWTSecret)))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/feed", h.GetFeed)
		api.GET("/posts/:id", h.GetPost)
		api.GET("/posts/:id/likes", h.GetPostLikes)
		api.POST("/likes/statuses", h.BatchLikeStatuses)
		api.GET("/ws/likes", ws.Serve)

		api.POST("/posts/:id/like",
			middleware.RequireActor(),
			middleware.RedisRateLimitMiddleware(30, time.Minute),
			h.ToggleLike)
		api.POST("/likes/migrate", middleware.RequireActor(), h.MigrateLikes)
		api.POST("/admin/reconcile", middleware.RequireActor(), h.AdminReconcile)
	}

	return router
}
