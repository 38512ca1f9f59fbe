package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/persistence/models"
)

// GormPatientRepository implements PatientRepository using GORM
type GormPatientRepository struct {
	db *gorm.DB
}

// NewGormPatientRepository creates a new GormPatientRepository
func NewGormPatientRepository(db *gorm.DB) *GormPatientRepository {
	return &GormPatientRepository{db: db}
}

// patientRefColumn maps a remote system to the reference column it owns.
func patientRefColumn(system sync.RemoteSystem) (string, error) {
	switch system {
	case sync.SystemERP:
		return "frappe_id", nil
	case sync.SystemRegistry:
		return "ihs_number", nil
	default:
		return "", fmt.Errorf("unknown remote system %q", system)
	}
}

// FindByID finds a patient by its ID
func (r *GormPatientRepository) FindByID(ctx context.Context, id int64) (*sync.Patient, error) {
	var model models.PatientModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNIK finds a patient by national identity number
func (r *GormPatientRepository) FindByNIK(ctx context.Context, nik string) (*sync.Patient, error) {
	if nik == "" {
		return nil, sync.ErrNotFound
	}
	var model models.PatientModel
	if err := r.db.WithContext(ctx).First(&model, "nik = ?", nik).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListUnlinked returns patients missing a reference for the given system,
// oldest first.
func (r *GormPatientRepository) ListUnlinked(ctx context.Context, system sync.RemoteSystem, limit int) ([]sync.Patient, error) {
	column, err := patientRefColumn(system)
	if err != nil {
		return nil, err
	}

	var patientModels []models.PatientModel
	if err := r.db.WithContext(ctx).
		Where(column+" = '' OR "+column+" IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&patientModels).Error; err != nil {
		return nil, err
	}

	patients := make([]sync.Patient, len(patientModels))
	for i, model := range patientModels {
		patients[i] = *model.ToDomain()
	}
	return patients, nil
}

// Create inserts the patient and, in the same transaction, one Pending sync
// state per requested system. A crash after commit still leaves the pending
// rows for the scheduler.
func (r *GormPatientRepository) Create(ctx context.Context, p *sync.Patient, pending []sync.RemoteSystem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PatientModelFromDomain(p)
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		p.ID = model.ID
		p.CreatedAt = model.CreatedAt
		p.UpdatedAt = model.UpdatedAt

		for _, system := range pending {
			state := models.SyncStateModelFromDomain(sync.NewPendingState(sync.KindPatient, p.ID, system))
			if err := tx.Create(state).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Save updates a patient
func (r *GormPatientRepository) Save(ctx context.Context, p *sync.Patient) error {
	model := models.PatientModelFromDomain(p)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveRemoteRef persists one reference column without touching the rest of
// the row. Empty refs are ignored: references are monotonic.
func (r *GormPatientRepository) SaveRemoteRef(ctx context.Context, id int64, system sync.RemoteSystem, ref string) error {
	if ref == "" {
		return nil
	}
	column, err := patientRefColumn(system)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.PatientModel{}).
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

// Ensure GormPatientRepository implements PatientRepository
var _ sync.PatientRepository = (*GormPatientRepository)(nil)
