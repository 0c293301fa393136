package likes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/logger"
	"github.com/photofeed/backend/internal/metrics"
)

// Outcome is one completed toggle to be mirrored into the durable store:
// fire-and-forget, not retried. A lost outcome is healed by the next sync
// for the same post (absolute SET semantics) or by a reconciliation pass.
type Outcome struct {
	PostID string
	Actor  ActorID
	Liked  bool
	Count  int64
}

// SyncService mirrors toggle outcomes into Postgres off the request path
// and reconciles drift between the two stores.
type SyncService struct {
	durable DurableStore
	atomic  AtomicStore
	sampler PostSampler

	queue       chan Outcome
	workers     int
	syncTimeout time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewSyncService creates a sync service with the given worker pool size and
// queue capacity.
func NewSyncService(durable DurableStore, atomic AtomicStore, sampler PostSampler, workers, queueSize int) *SyncService {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncService{
		durable:     durable,
		atomic:      atomic,
		sampler:     sampler,
		queue:       make(chan Outcome, queueSize),
		workers:     workers,
		syncTimeout: 10 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the background workers.
func (s *SyncService) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	logger.Log.Info("Durable sync workers started", zap.Int("workers", s.workers))
}

// Stop cancels the workers and waits for them to exit. Outcomes still
// queued are dropped; reconciliation catches anything they would have
// written.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Log.Info("Durable sync workers stopped")
}

// Enqueue hands an outcome to the background workers. It never blocks the
// toggle path: when the queue is full the outcome is dropped with a log
// line and the durable mirror self-heals later.
func (s *SyncService) Enqueue(outcome Outcome) {
	select {
	case s.queue <- outcome:
		metrics.Get().SyncQueueDepth.Set(float64(len(s.queue)))
	default:
		metrics.Get().SyncOutcomesTotal.WithLabelValues("dropped").Inc()
		logger.Warn("Sync queue full, dropping outcome",
			logger.WithPostID(outcome.PostID),
			logger.WithActor(outcome.Actor.Tag()),
		)
	}
}

func (s *SyncService) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case outcome := <-s.queue:
			metrics.Get().SyncQueueDepth.Set(float64(len(s.queue)))
			ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
			if err := s.SyncToDurable(ctx, outcome); err != nil {
				metrics.Get().SyncOutcomesTotal.WithLabelValues("error").Inc()
				logger.Error("Durable sync failed",
					logger.WithPostID(outcome.PostID),
					logger.WithActor(outcome.Actor.Tag()),
					zap.Error(err),
				)
			} else {
				metrics.Get().SyncOutcomesTotal.WithLabelValues("ok").Inc()
			}
			cancel()
		}
	}
}

// SyncToDurable mirrors one outcome: upsert or delete the like row, then
// unconditionally SET the post's count column to the value the counter
// store reported. SET rather than +1/-1 is the load-bearing choice here: a
// missed or duplicated sync cannot accumulate error, because every write
// lands an authoritative absolute value. Both steps are idempotent.
func (s *SyncService) SyncToDurable(ctx context.Context, outcome Outcome) error {
	if outcome.PostID == "" {
		return ErrInvalidPostID
	}
	if !outcome.Actor.Valid() {
		return ErrInvalidActor
	}

	if outcome.Liked {
		if err := s.durable.UpsertLike(ctx, outcome.PostID, outcome.Actor.Tag()); err != nil {
			return fmt.Errorf("upsert like row: %w", err)
		}
	} else {
		if err := s.durable.DeleteLike(ctx, outcome.PostID, outcome.Actor.Tag()); err != nil {
			return fmt.Errorf("delete like row: %w", err)
		}
	}

	if err := s.durable.SetLikeCount(ctx, outcome.PostID, outcome.Count); err != nil {
		return fmt.Errorf("set durable count: %w", err)
	}
	return nil
}

// ReconcileCounter compares one post's live counter against the durable
// count column and corrects the column when they diverge. Policy in steady
// state: the counter store wins; Postgres is the mirror. (The inverse
// direction, durable wins, is the explicit operator recovery flow on
// CounterService.SyncFromDurable.) A missing live counter is cold-start
// territory and is left alone.
func (s *SyncService) ReconcileCounter(ctx context.Context, postID string) (bool, error) {
	if postID == "" {
		return false, ErrInvalidPostID
	}

	vals, err := s.atomic.GetCounts(ctx, []string{countKey(postID)})
	if err != nil {
		return false, fmt.Errorf("read live counter: %w", err)
	}
	if vals[0] == nil {
		return false, nil
	}
	live := *vals[0]

	durableCount, err := s.durable.GetLikeCount(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("read durable counter: %w", err)
	}
	if durableCount == live {
		return false, nil
	}

	if err := s.durable.SetLikeCount(ctx, postID, live); err != nil {
		return false, fmt.Errorf("correct durable counter: %w", err)
	}

	metrics.Get().ReconcileDriftTotal.WithLabelValues("redis_wins").Inc()
	logger.Log.Info("Corrected drifted durable count",
		logger.WithPostID(postID),
		zap.Int64("durable", durableCount),
		zap.Int64("live", live),
	)
	return true, nil
}

// ReconcileAll reconciles a random sample of posts and reports how many
// were checked and corrected. Scheduling is the Reconciler's (or an
// operator's) job.
func (s *SyncService) ReconcileAll(ctx context.Context, sample int) (checked, corrected int, err error) {
	postIDs, err := s.sampler.SamplePostIDs(ctx, sample)
	if err != nil {
		return 0, 0, fmt.Errorf("sample posts: %w", err)
	}

	for _, id := range postIDs {
		fixed, rerr := s.ReconcileCounter(ctx, id)
		if rerr != nil {
			logger.WarnWithFields("Reconciliation skipped post "+id, rerr)
			continue
		}
		checked++
		if fixed {
			corrected++
		}
	}

	metrics.Get().ReconcileRunsTotal.Inc()
	return checked, corrected, nil
}
