package scheduler

import (
	"context"
	stdsync "sync"
	"time"

	"go.uber.org/zap"

	"github.com/klinik/backend/internal/domain/sync"
)

// IntervalTriggerConfig holds configuration for the interval trigger
type IntervalTriggerConfig struct {
	// ReconcileInterval is how often a full reconcile sweep is scheduled
	ReconcileInterval time.Duration

	// DrainInterval is how often the outbox drain is scheduled
	DrainInterval time.Duration
}

// DefaultIntervalTriggerConfig returns default interval trigger configuration
func DefaultIntervalTriggerConfig() IntervalTriggerConfig {
	return IntervalTriggerConfig{
		ReconcileInterval: 15 * time.Minute,
		DrainInterval:     time.Minute,
	}
}

// IntervalTrigger periodically feeds reconcile and drain jobs to the
// scheduler. A sweep covers every entity kind plus the remote pulls.
type IntervalTrigger struct {
	config    IntervalTriggerConfig
	scheduler *ReconcileScheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        stdsync.WaitGroup
	mu        stdsync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(
	config IntervalTriggerConfig,
	scheduler *ReconcileScheduler,
	logger *zap.Logger,
) *IntervalTrigger {
	return &IntervalTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts the interval trigger
func (t *IntervalTrigger) Start(ctx context.Context) error {
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

	t.logger.Info("Interval trigger started",
		zap.Duration("reconcile_interval", t.config.ReconcileInterval),
		zap.Duration("drain_interval", t.config.DrainInterval),
	)

	return nil
}

// Stop stops the interval trigger
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
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
		t.logger.Info("Interval trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop schedules sweeps and drains on their own tickers
func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	reconcileTicker := time.NewTicker(t.config.ReconcileInterval)
	defer reconcileTicker.Stop()
	drainTicker := time.NewTicker(t.config.DrainInterval)
	defer drainTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reconcileTicker.C:
			t.TriggerSweep()
		case <-drainTicker.C:
			if err := t.scheduler.ScheduleDrain(); err != nil {
				t.logger.Error("Failed to schedule outbox drain", zap.Error(err))
			}
		}
	}
}

// TriggerSweep schedules a reconcile job for every entity kind plus the
// remote pulls. Also used for manual triggering.
func (t *IntervalTrigger) TriggerSweep() {
	t.logger.Info("Triggering reconcile sweep")

	for _, kind := range sync.Kinds() {
		if err := t.scheduler.ScheduleReconcile(kind); err != nil {
			t.logger.Error("Failed to schedule reconcile job",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}

	for _, jobType := range []JobType{JobTypePullPatients, JobTypePullFormulary} {
		if err := t.scheduler.SubmitJob(NewJob(jobType, t.scheduler.config.RetryAttempts)); err != nil {
			t.logger.Error("Failed to schedule pull job",
				zap.String("job_type", string(jobType)),
				zap.Error(err),
			)
		}
	}
}
