package likes

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/photofeed/backend/internal/logger"
)

// Reconciler periodically runs a drift check between the counter store and
// the durable mirror, catching syncs that were dropped or lost.
type Reconciler struct {
	sync     *SyncService
	interval time.Duration
	sample   int

	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex
}

// NewReconciler creates a reconciler that checks a random sample of posts
// every interval.
func NewReconciler(syncService *SyncService, interval time.Duration, sample int) *Reconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if sample <= 0 {
		sample = 100
	}
	return &Reconciler{
		sync:     syncService,
		interval: interval,
		sample:   sample,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic reconciliation loop
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.mu.Unlock()

	logger.Log.Info("Starting like-count reconciliation loop",
		zap.Duration("interval", r.interval),
		zap.Int("sample", r.sample),
	)

	r.wg.Add(1)
	go r.loop()
}

// Stop gracefully stops the reconciliation loop
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()
	logger.Log.Info("Like-count reconciliation loop stopped")
}

func (r *Reconciler) loop() {
	defer r.wg.Done()

	// Run once immediately on startup
	r.run()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.run()
		}
	}
}

func (r *Reconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	checked, corrected, err := r.sync.ReconcileAll(ctx, r.sample)
	if err != nil {
		logger.ErrorWithFields("Reconciliation pass failed", err)
		return
	}

	logger.Log.Info("Reconciliation pass completed",
		zap.Int("checked", checked),
		zap.Int("corrected", corrected),
		zap.Duration("duration", time.Since(start)),
	)
}
