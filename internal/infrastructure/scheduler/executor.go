package scheduler

import (
	"context"

	"github.com/klinik/backend/internal/domain/sync"
)

// SyncEngine is the slice of the sync application service the executor needs.
type SyncEngine interface {
	Run(ctx context.Context, kind sync.EntityKind) (*sync.SyncResult, error)
	DrainPending(ctx context.Context, limit int) (*sync.SyncResult, error)
	PullPatients(ctx context.Context, limit int) (*sync.SyncResult, error)
	PullFormularyItems(ctx context.Context, limit int) (*sync.SyncResult, error)
}

// EngineExecutor executes reconcile jobs against the sync engine.
type EngineExecutor struct {
	engine     SyncEngine
	drainLimit int
	pullLimit  int
}

// NewEngineExecutor creates a new executor. drainLimit bounds one outbox
// drain pass, pullLimit bounds one remote pull page.
func NewEngineExecutor(engine SyncEngine, drainLimit, pullLimit int) *EngineExecutor {
	if drainLimit <= 0 {
		drainLimit = 100
	}
	if pullLimit <= 0 {
		pullLimit = sync.MaxPullPageSize
	}
	return &EngineExecutor{
		engine:     engine,
		drainLimit: drainLimit,
		pullLimit:  pullLimit,
	}
}

// Execute runs the job and records its counters. Per-item failures are part
// of the result, not an execution error.
func (e *EngineExecutor) Execute(ctx context.Context, job *Job) error {
	var (
		result *sync.SyncResult
		err    error
	)

	switch job.Type {
	case JobTypeReconcile:
		result, err = e.engine.Run(ctx, job.Kind)
	case JobTypeDrain:
		result, err = e.engine.DrainPending(ctx, e.drainLimit)
	case JobTypePullPatients:
		result, err = e.engine.PullPatients(ctx, e.pullLimit)
	case JobTypePullFormulary:
		result, err = e.engine.PullFormularyItems(ctx, e.pullLimit)
	default:
		return ErrUnknownJobType
	}
	if err != nil {
		return err
	}

	job.Complete(result)
	return nil
}

// Ensure EngineExecutor implements Executor
var _ Executor = (*EngineExecutor)(nil)
