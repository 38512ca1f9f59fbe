package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/klinik/backend/internal/domain/sync"
)

// PatientModel is the persistence model for the Patient domain entity.
type PatientModel struct {
	ID         int64       `gorm:"primaryKey;autoIncrement"`
	FirstName  string      `gorm:"type:varchar(100);not null"`
	LastName   string      `gorm:"type:varchar(100)"`
	Gender     sync.Gender `gorm:"type:varchar(10)"`
	NIK        string      `gorm:"type:varchar(16);index:idx_patients_nik"`
	Phone      string      `gorm:"type:varchar(30);index:idx_patients_phone"`
	BirthDate  string      `gorm:"type:varchar(10)"`
	Street     string      `gorm:"type:varchar(255)"`
	City       string      `gorm:"type:varchar(100)"`
	PostalCode string      `gorm:"type:varchar(10)"`
	FrappeID   string      `gorm:"type:varchar(140);index:idx_patients_frappe_id"`
	IHSNumber  string      `gorm:"type:varchar(40);index:idx_patients_ihs_number"`
	CreatedAt  time.Time   `gorm:"not null"`
	UpdatedAt  time.Time   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PatientModel) TableName() string {
	return "patients"
}

// ToDomain converts the persistence model to a domain Patient entity.
func (m *PatientModel) ToDomain() *sync.Patient {
	return &sync.Patient{
		ID:         m.ID,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Gender:     m.Gender,
		NIK:        m.NIK,
		Phone:      m.Phone,
		BirthDate:  m.BirthDate,
		Street:     m.Street,
		City:       m.City,
		PostalCode: m.PostalCode,
		FrappeID:   m.FrappeID,
		IHSNumber:  m.IHSNumber,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Patient entity.
func (m *PatientModel) FromDomain(p *sync.Patient) {
	m.ID = p.ID
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.Gender = p.Gender
	m.NIK = p.NIK
	m.Phone = p.Phone
	m.BirthDate = p.BirthDate
	m.Street = p.Street
	m.City = p.City
	m.PostalCode = p.PostalCode
	m.FrappeID = p.FrappeID
	m.IHSNumber = p.IHSNumber
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// PatientModelFromDomain creates a new persistence model from a domain Patient entity.
func PatientModelFromDomain(p *sync.Patient) *PatientModel {
	m := &PatientModel{}
	m.FromDomain(p)
	return m
}

// PractitionerModel is the persistence model for the Practitioner domain entity.
type PractitionerModel struct {
	ID                    int64       `gorm:"primaryKey;autoIncrement"`
	FirstName             string      `gorm:"type:varchar(100);not null"`
	LastName              string      `gorm:"type:varchar(100)"`
	Gender                sync.Gender `gorm:"type:varchar(10)"`
	NIK                   string      `gorm:"type:varchar(16);index:idx_practitioners_nik"`
	Phone                 string      `gorm:"type:varchar(30)"`
	BirthDate             string      `gorm:"type:varchar(10)"`
	Department            string      `gorm:"type:varchar(100)"`
	Active                bool        `gorm:"not null;default:true"`
	FrappeID              string      `gorm:"type:varchar(140);index:idx_practitioners_frappe_id"`
	IHSPractitionerNumber string      `gorm:"type:varchar(40);index:idx_practitioners_ihs_number"`
	CreatedAt             time.Time   `gorm:"not null"`
	UpdatedAt             time.Time   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PractitionerModel) TableName() string {
	return "practitioners"
}

// ToDomain converts the persistence model to a domain Practitioner entity.
func (m *PractitionerModel) ToDomain() *sync.Practitioner {
	return &sync.Practitioner{
		ID:                    m.ID,
		FirstName:             m.FirstName,
		LastName:              m.LastName,
		Gender:                m.Gender,
		NIK:                   m.NIK,
		Phone:                 m.Phone,
		BirthDate:             m.BirthDate,
		Department:            m.Department,
		Active:                m.Active,
		FrappeID:              m.FrappeID,
		IHSPractitionerNumber: m.IHSPractitionerNumber,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Practitioner entity.
func (m *PractitionerModel) FromDomain(p *sync.Practitioner) {
	m.ID = p.ID
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.Gender = p.Gender
	m.NIK = p.NIK
	m.Phone = p.Phone
	m.BirthDate = p.BirthDate
	m.Department = p.Department
	m.Active = p.Active
	m.FrappeID = p.FrappeID
	m.IHSPractitionerNumber = p.IHSPractitionerNumber
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// PractitionerModelFromDomain creates a new persistence model from a domain Practitioner entity.
func PractitionerModelFromDomain(p *sync.Practitioner) *PractitionerModel {
	m := &PractitionerModel{}
	m.FromDomain(p)
	return m
}

// PharmacistModel is the persistence model for the Pharmacist domain entity.
// There is no ERP reference column: the ERP has no pharmacist resource.
type PharmacistModel struct {
	ID                    int64       `gorm:"primaryKey;autoIncrement"`
	FirstName             string      `gorm:"type:varchar(100);not null"`
	LastName              string      `gorm:"type:varchar(100)"`
	Gender                sync.Gender `gorm:"type:varchar(10)"`
	NIK                   string      `gorm:"type:varchar(16);index:idx_pharmacists_nik"`
	Phone                 string      `gorm:"type:varchar(30)"`
	BirthDate             string      `gorm:"type:varchar(10)"`
	Email                 string      `gorm:"type:varchar(255)"`
	IHSPractitionerNumber string      `gorm:"type:varchar(40);index:idx_pharmacists_ihs_number"`
	CreatedAt             time.Time   `gorm:"not null"`
	UpdatedAt             time.Time   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PharmacistModel) TableName() string {
	return "pharmacists"
}

// ToDomain converts the persistence model to a domain Pharmacist entity.
func (m *PharmacistModel) ToDomain() *sync.Pharmacist {
	return &sync.Pharmacist{
		ID:                    m.ID,
		FirstName:             m.FirstName,
		LastName:              m.LastName,
		Gender:                m.Gender,
		NIK:                   m.NIK,
		Phone:                 m.Phone,
		BirthDate:             m.BirthDate,
		Email:                 m.Email,
		IHSPractitionerNumber: m.IHSPractitionerNumber,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Pharmacist entity.
func (m *PharmacistModel) FromDomain(p *sync.Pharmacist) {
	m.ID = p.ID
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.Gender = p.Gender
	m.NIK = p.NIK
	m.Phone = p.Phone
	m.BirthDate = p.BirthDate
	m.Email = p.Email
	m.IHSPractitionerNumber = p.IHSPractitionerNumber
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// PharmacistModelFromDomain creates a new persistence model from a domain Pharmacist entity.
func PharmacistModelFromDomain(p *sync.Pharmacist) *PharmacistModel {
	m := &PharmacistModel{}
	m.FromDomain(p)
	return m
}

// FormularyItemModel is the persistence model for the FormularyItem domain
// entity. The item code is the unique natural key; the ERP document name
// lives in its own column.
type FormularyItemModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Code        string          `gorm:"type:varchar(140);not null;uniqueIndex:idx_formulary_items_code"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Unit        string          `gorm:"type:varchar(50)"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	StockQty    decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0"`
	FrappeID    string          `gorm:"type:varchar(140);index:idx_formulary_items_frappe_id"`
	KFACode     string          `gorm:"type:varchar(40);index:idx_formulary_items_kfa_code"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FormularyItemModel) TableName() string {
	return "formulary_items"
}

// ToDomain converts the persistence model to a domain FormularyItem entity.
func (m *FormularyItemModel) ToDomain() *sync.FormularyItem {
	return &sync.FormularyItem{
		ID:          m.ID,
		Code:        m.Code,
		Name:        m.Name,
		Unit:        m.Unit,
		Description: m.Description,
		Price:       m.Price,
		StockQty:    m.StockQty,
		FrappeID:    m.FrappeID,
		KFACode:     m.KFACode,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain FormularyItem entity.
func (m *FormularyItemModel) FromDomain(item *sync.FormularyItem) {
	m.ID = item.ID
	m.Code = item.Code
	m.Name = item.Name
	m.Unit = item.Unit
	m.Description = item.Description
	m.Price = item.Price
	m.StockQty = item.StockQty
	m.FrappeID = item.FrappeID
	m.KFACode = item.KFACode
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
}

// FormularyItemModelFromDomain creates a new persistence model from a domain FormularyItem entity.
func FormularyItemModelFromDomain(item *sync.FormularyItem) *FormularyItemModel {
	m := &FormularyItemModel{}
	m.FromDomain(item)
	return m
}

// SyncStateModel is the persistence model for the SyncState outbox row,
// unique per (kind, entity, system).
type SyncStateModel struct {
	ID        int64             `gorm:"primaryKey;autoIncrement"`
	Kind      sync.EntityKind   `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_states_key,priority:1"`
	EntityID  int64             `gorm:"not null;uniqueIndex:idx_sync_states_key,priority:2"`
	System    sync.RemoteSystem `gorm:"type:varchar(10);not null;uniqueIndex:idx_sync_states_key,priority:3"`
	Status    sync.SyncStatus   `gorm:"type:varchar(10);not null;default:'PENDING';index:idx_sync_states_status"`
	RemoteRef string            `gorm:"type:varchar(140)"`
	Attempts  int               `gorm:"not null;default:0"`
	LastError string            `gorm:"type:text"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncStateModel) TableName() string {
	return "sync_states"
}

// ToDomain converts the persistence model to a domain SyncState.
func (m *SyncStateModel) ToDomain() *sync.SyncState {
	return &sync.SyncState{
		ID:        m.ID,
		Kind:      m.Kind,
		EntityID:  m.EntityID,
		System:    m.System,
		Status:    m.Status,
		RemoteRef: m.RemoteRef,
		Attempts:  m.Attempts,
		LastError: m.LastError,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncState.
func (m *SyncStateModel) FromDomain(s *sync.SyncState) {
	m.ID = s.ID
	m.Kind = s.Kind
	m.EntityID = s.EntityID
	m.System = s.System
	m.Status = s.Status
	m.RemoteRef = s.RemoteRef
	m.Attempts = s.Attempts
	m.LastError = s.LastError
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
}

// SyncStateModelFromDomain creates a new persistence model from a domain SyncState.
func SyncStateModelFromDomain(s *sync.SyncState) *SyncStateModel {
	m := &SyncStateModel{}
	m.FromDomain(s)
	return m
}
