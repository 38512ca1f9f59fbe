package sync

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// SyncState
// ---------------------------------------------------------------------------

// SyncStatus is the per-entity-per-system synchronization status.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusLinked  SyncStatus = "LINKED"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// IsValid returns true if the status is known.
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusLinked, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// SyncState is the persisted outbox row for one (entity, system) pair. It is
// written in the same local transaction as the entity write, so a crash
// between local commit and deferred push leaves an observable Pending row
// that the scheduler drains later.
type SyncState struct {
	ID        int64
	Kind      EntityKind
	EntityID  int64
	System    RemoteSystem
	Status    SyncStatus
	RemoteRef string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPendingState creates a Pending row for the given entity and system.
func NewPendingState(kind EntityKind, entityID int64, system RemoteSystem) *SyncState {
	now := time.Now()
	return &SyncState{
		Kind:      kind,
		EntityID:  entityID,
		System:    system,
		Status:    SyncStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkLinked records a successful push. Failed rows can heal back to Linked.
func (s *SyncState) MarkLinked(ref string) {
	s.Status = SyncStatusLinked
	if ref != "" {
		s.RemoteRef = ref
	}
	s.LastError = ""
	s.Attempts++
	s.UpdatedAt = time.Now()
}

// MarkFailed records a failed attempt. The row stays eligible for the next
// reconciliation pass.
func (s *SyncState) MarkFailed(errMsg string) {
	s.Status = SyncStatusFailed
	s.LastError = errMsg
	s.Attempts++
	s.UpdatedAt = time.Now()
}

// SyncStateRepository persists sync states.
type SyncStateRepository interface {
	// Save upserts a state keyed by (kind, entity_id, system).
	Save(ctx context.Context, state *SyncState) error
	// ListUnlinked returns Pending and Failed rows, oldest first.
	ListUnlinked(ctx context.Context, limit int) ([]SyncState, error)
	// Find returns the state for one (kind, entity, system), or ErrNotFound.
	Find(ctx context.Context, kind EntityKind, entityID int64, system RemoteSystem) (*SyncState, error)
}
