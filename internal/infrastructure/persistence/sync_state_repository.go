package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/persistence/models"
)

// GormSyncStateRepository implements SyncStateRepository using GORM
type GormSyncStateRepository struct {
	db *gorm.DB
}

// NewGormSyncStateRepository creates a new GormSyncStateRepository
func NewGormSyncStateRepository(db *gorm.DB) *GormSyncStateRepository {
	return &GormSyncStateRepository{db: db}
}

// Save upserts a state keyed by (kind, entity_id, system).
func (r *GormSyncStateRepository) Save(ctx context.Context, state *sync.SyncState) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	model := models.SyncStateModelFromDomain(state)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "kind"}, {Name: "entity_id"}, {Name: "system"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "remote_ref", "attempts", "last_error", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	state.ID = model.ID
	return nil
}

// ListUnlinked returns Pending and Failed rows, oldest activity first.
func (r *GormSyncStateRepository) ListUnlinked(ctx context.Context, limit int) ([]sync.SyncState, error) {
	var stateModels []models.SyncStateModel
	if err := r.db.WithContext(ctx).
		Where("status <> ?", sync.SyncStatusLinked).
		Order("updated_at ASC").
		Limit(limit).
		Find(&stateModels).Error; err != nil {
		return nil, err
	}

	states := make([]sync.SyncState, len(stateModels))
	for i, model := range stateModels {
		states[i] = *model.ToDomain()
	}
	return states, nil
}

// Find returns the state for one (kind, entity, system).
func (r *GormSyncStateRepository) Find(ctx context.Context, kind sync.EntityKind, entityID int64, system sync.RemoteSystem) (*sync.SyncState, error) {
	var model models.SyncStateModel
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND entity_id = ? AND system = ?", kind, entityID, system).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormSyncStateRepository implements SyncStateRepository
var _ sync.SyncStateRepository = (*GormSyncStateRepository)(nil)
