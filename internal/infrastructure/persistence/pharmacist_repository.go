package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/persistence/models"
)

// GormPharmacistRepository implements PharmacistRepository using GORM
type GormPharmacistRepository struct {
	db *gorm.DB
}

// NewGormPharmacistRepository creates a new GormPharmacistRepository
func NewGormPharmacistRepository(db *gorm.DB) *GormPharmacistRepository {
	return &GormPharmacistRepository{db: db}
}

// FindByID finds a pharmacist by its ID
func (r *GormPharmacistRepository) FindByID(ctx context.Context, id int64) (*sync.Pharmacist, error) {
	var model models.PharmacistModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListUnlinked returns pharmacists missing a registry reference, oldest
// first. Pharmacists carry no ERP reference at all.
func (r *GormPharmacistRepository) ListUnlinked(ctx context.Context, system sync.RemoteSystem, limit int) ([]sync.Pharmacist, error) {
	if system != sync.SystemRegistry {
		return nil, fmt.Errorf("pharmacists hold no reference for system %q", system)
	}

	var pharmacistModels []models.PharmacistModel
	if err := r.db.WithContext(ctx).
		Where("ihs_practitioner_number = '' OR ihs_practitioner_number IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&pharmacistModels).Error; err != nil {
		return nil, err
	}

	pharmacists := make([]sync.Pharmacist, len(pharmacistModels))
	for i, model := range pharmacistModels {
		pharmacists[i] = *model.ToDomain()
	}
	return pharmacists, nil
}

// Save creates or updates a pharmacist
func (r *GormPharmacistRepository) Save(ctx context.Context, p *sync.Pharmacist) error {
	model := models.PharmacistModelFromDomain(p)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

// SaveRemoteRef persists the registry reference. Empty refs and ERP refs are
// ignored.
func (r *GormPharmacistRepository) SaveRemoteRef(ctx context.Context, id int64, system sync.RemoteSystem, ref string) error {
	if ref == "" || system != sync.SystemRegistry {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.PharmacistModel{}).
		Where("id = ?", id).
		Update("ihs_practitioner_number", ref)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrNotFound
	}
	return nil
}

// Ensure GormPharmacistRepository implements PharmacistRepository
var _ sync.PharmacistRepository = (*GormPharmacistRepository)(nil)
