package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	apptracking "github.com/ordertrack/backend/internal/application/tracking"
	"github.com/ordertrack/backend/internal/domain/tracking"
)

// ---------------------------------------------------------------------------
// ReconcileTriggerConfig
// ---------------------------------------------------------------------------

// ReconcileTriggerConfig holds configuration for the reconcile trigger
type ReconcileTriggerConfig struct {
	// Interval is the time between reconciliation cycles
	Interval time.Duration

	// CycleTimeout is the hard deadline for one full cycle
	CycleTimeout time.Duration

	// LockTTL is how long the cycle lock may be held before expiring
	LockTTL time.Duration
}

// DefaultReconcileTriggerConfig returns default configuration
func DefaultReconcileTriggerConfig() ReconcileTriggerConfig {
	return ReconcileTriggerConfig{
		Interval:     30 * time.Minute,
		CycleTimeout: 10 * time.Minute,
		LockTTL:      15 * time.Minute,
	}
}

// Validate checks the trigger configuration
func (c ReconcileTriggerConfig) Validate() error {
	if c.Interval <= 0 || c.CycleTimeout <= 0 || c.LockTTL <= 0 {
		return ErrInvalidConfig
	}
	if c.CycleTimeout > c.LockTTL {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// ReconcileTrigger
// ---------------------------------------------------------------------------

// ReconcileTrigger drives periodic reconciliation cycles. Each tick takes
// the cycle lock, refreshes the messaging credential, and runs one cycle
// under a deadline. A tick that finds the lock taken is skipped; the order
// state machine makes the following cycle pick up whatever it missed.
type ReconcileTrigger struct {
	config     ReconcileTriggerConfig
	reconciler *apptracking.Reconciler
	lock       tracking.CycleLock
	tokens     tracking.TokenSource
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewReconcileTrigger creates a new reconcile trigger
func NewReconcileTrigger(
	config ReconcileTriggerConfig,
	reconciler *apptracking.Reconciler,
	lock tracking.CycleLock,
	tokens tracking.TokenSource,
	logger *zap.Logger,
) (*ReconcileTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ReconcileTrigger{
		config:     config,
		reconciler: reconciler,
		lock:       lock,
		tokens:     tokens,
		logger:     logger,
	}, nil
}

// Start starts the trigger loop
func (t *ReconcileTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Reconcile trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("cycle_timeout", t.config.CycleTimeout),
	)

	return nil
}

// Stop stops the trigger and waits for an in-flight cycle to finish
func (t *ReconcileTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return ErrTriggerNotRunning
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Reconcile trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop fires one cycle immediately and then one per interval
func (t *ReconcileTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	t.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runCycle(ctx)
		}
	}
}

// runCycle executes one guarded reconciliation cycle
func (t *ReconcileTrigger) runCycle(ctx context.Context) {
	acquired, err := t.lock.Acquire(ctx, t.config.LockTTL)
	if err != nil {
		t.logger.Error("Failed to acquire cycle lock", zap.Error(err))
		return
	}
	if !acquired {
		t.logger.Debug("Cycle lock held elsewhere, skipping tick")
		return
	}
	defer func() {
		if err := t.lock.Release(ctx); err != nil {
			t.logger.Warn("Failed to release cycle lock", zap.Error(err))
		}
	}()

	cycleCtx, cancel := context.WithTimeout(ctx, t.config.CycleTimeout)
	defer cancel()

	// Token refresh is best-effort: the messenger keeps its previous
	// credential when the refresh fails.
	if err := t.tokens.Refresh(cycleCtx); err != nil {
		t.logger.Warn("Messaging token refresh failed, keeping previous token", zap.Error(err))
	}

	if _, err := t.reconciler.RunCycle(cycleCtx); err != nil {
		t.logger.Error("Reconciliation cycle failed", zap.Error(err))
	}
}
