package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apkanwar/BetterChallenges/internal/config"
)

// Carryover folds stale daily snapshots into accumulated point totals
type Carryover interface {
	Rollover(ctx context.Context, today time.Time) int
}

// RolloverWorker periodically sweeps the challenge collection so that
// yesterday's capped points move into each participant's accumulated carry
// and today's board starts from zero.
type RolloverWorker struct {
	service Carryover
	config  *config.RolloverConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewRolloverWorker creates a new rollover worker
func NewRolloverWorker(service Carryover, cfg *config.RolloverConfig, logger *slog.Logger) *RolloverWorker {
	return &RolloverWorker{
		service: service,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background rollover process
func (w *RolloverWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("rollover worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background rollover process
func (w *RolloverWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("rollover worker stopped")
	return nil
}

// run is the main worker loop
func (w *RolloverWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one rollover cycle over the whole collection
func (w *RolloverWorker) sweep(ctx context.Context) {
	startTime := time.Now()
	changed := w.service.Rollover(ctx, startTime)
	if changed == 0 {
		w.logger.Debug("rollover cycle: nothing to carry over")
		return
	}
	w.logger.Info("rollover cycle completed",
		"duration", time.Since(startTime),
		"challenges_changed", changed,
	)
}

// IsRunning returns whether the worker is currently running
func (w *RolloverWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single rollover cycle (useful for manual triggers)
func (w *RolloverWorker) RunOnce(ctx context.Context) {
	w.sweep(ctx)
}
