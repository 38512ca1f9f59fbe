package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/persistence/models"
)

// GormPractitionerRepository implements PractitionerRepository using GORM
type GormPractitionerRepository struct {
	db *gorm.DB
}

// NewGormPractitionerRepository creates a new GormPractitionerRepository
func NewGormPractitionerRepository(db *gorm.DB) *GormPractitionerRepository {
	return &GormPractitionerRepository{db: db}
}

func practitionerRefColumn(system sync.RemoteSystem) (string, error) {
	switch system {
	case sync.SystemERP:
		return "frappe_id", nil
	case sync.SystemRegistry:
		return "ihs_practitioner_number", nil
	default:
		return "", fmt.Errorf("unknown remote system %q", system)
	}
}

// FindByID finds a practitioner by its ID
func (r *GormPractitionerRepository) FindByID(ctx context.Context, id int64) (*sync.Practitioner, error) {
	var model models.PractitionerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListUnlinked returns active practitioners missing a reference for the
// given system, oldest first.
func (r *GormPractitionerRepository) ListUnlinked(ctx context.Context, system sync.RemoteSystem, limit int) ([]sync.Practitioner, error) {
	column, err := practitionerRefColumn(system)
	if err != nil {
		return nil, err
	}

	var practitionerModels []models.PractitionerModel
	if err := r.db.WithContext(ctx).
		Where("active = true").
		Where(column+" = '' OR "+column+" IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&practitionerModels).Error; err != nil {
		return nil, err
	}

	practitioners := make([]sync.Practitioner, len(practitionerModels))
	for i, model := range practitionerModels {
		practitioners[i] = *model.ToDomain()
	}
	return practitioners, nil
}

// Save creates or updates a practitioner
func (r *GormPractitionerRepository) Save(ctx context.Context, p *sync.Practitioner) error {
	model := models.PractitionerModelFromDomain(p)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

// SaveRemoteRef persists one reference column. Empty refs are ignored.
func (r *GormPractitionerRepository) SaveRemoteRef(ctx context.Context, id int64, system sync.RemoteSystem, ref string) error {
	if ref == "" {
		return nil
	}
	column, err := practitionerRefColumn(system)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.PractitionerModel{}).
		Where("id = ?", id).
		Update(column, ref)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrNotFound
	}
	return nil
}

// Ensure GormPractitionerRepository implements PractitionerRepository
var _ sync.PractitionerRepository = (*GormPractitionerRepository)(nil)
