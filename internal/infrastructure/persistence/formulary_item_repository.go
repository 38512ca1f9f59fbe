package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/persistence/models"
)

// GormFormularyItemRepository implements FormularyItemRepository using GORM
type GormFormularyItemRepository struct {
	db *gorm.DB
}

// NewGormFormularyItemRepository creates a new GormFormularyItemRepository
func NewGormFormularyItemRepository(db *gorm.DB) *GormFormularyItemRepository {
	return &GormFormularyItemRepository{db: db}
}

// FindByID finds a formulary item by its ID
func (r *GormFormularyItemRepository) FindByID(ctx context.Context, id int64) (*sync.FormularyItem, error) {
	var model models.FormularyItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a formulary item by its item code
func (r *GormFormularyItemRepository) FindByCode(ctx context.Context, code string) (*sync.FormularyItem, error) {
	if code == "" {
		return nil, sync.ErrNotFound
	}
	var model models.FormularyItemModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListUnlinked returns items missing a reference for the given system.
func (r *GormFormularyItemRepository) ListUnlinked(ctx context.Context, system sync.RemoteSystem, limit int) ([]sync.FormularyItem, error) {
	var column string
	switch system {
	case sync.SystemERP:
		column = "frappe_id"
	case sync.SystemRegistry:
		column = "kfa_code"
	default:
		return nil, fmt.Errorf("unknown remote system %q", system)
	}

	var itemModels []models.FormularyItemModel
	if err := r.db.WithContext(ctx).
		Where(column+" = '' OR "+column+" IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]sync.FormularyItem, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// Upsert creates or refreshes a shadow row keyed by item code. The returned
// flag is true when a new row was inserted.
func (r *GormFormularyItemRepository) Upsert(ctx context.Context, item *sync.FormularyItem) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FormularyItemModel
		err := tx.First(&existing, "code = ?", item.Code).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			model := models.FormularyItemModelFromDomain(item)
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			item.ID = model.ID
			created = true
			return nil
		case err != nil:
			return err
		}

		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		// A pull never clears an already known reference.
		if item.FrappeID == "" {
			item.FrappeID = existing.FrappeID
		}
		if item.KFACode == "" {
			item.KFACode = existing.KFACode
		}
		model := models.FormularyItemModelFromDomain(item)
		return tx.Save(model).Error
	})
	return created, err
}

// Save updates a formulary item
func (r *GormFormularyItemRepository) Save(ctx context.Context, item *sync.FormularyItem) error {
	model := models.FormularyItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormFormularyItemRepository implements FormularyItemRepository
var _ sync.FormularyItemRepository = (*GormFormularyItemRepository)(nil)
