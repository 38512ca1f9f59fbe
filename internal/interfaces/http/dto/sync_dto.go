package dto

import (
	"time"

	"github.com/klinik/backend/internal/domain/sync"
)

// RegisterPatientRequest is the payload for registering a new patient.
// The nik tag is a custom validator checking the 16-digit format.
type RegisterPatientRequest struct {
	FirstName  string `json:"first_name" binding:"required,max=100"`
	LastName   string `json:"last_name" binding:"max=100"`
	Gender     string `json:"gender" binding:"omitempty,oneof=male female unknown"`
	NIK        string `json:"nik" binding:"required,nik"`
	Phone      string `json:"phone" binding:"omitempty,max=20"`
	BirthDate  string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Street     string `json:"street" binding:"omitempty,max=200"`
	City       string `json:"city" binding:"omitempty,max=100"`
	PostalCode string `json:"postal_code" binding:"omitempty,max=10"`
}

// ToDomain converts the request into a domain patient
func (r *RegisterPatientRequest) ToDomain() *sync.Patient {
	return &sync.Patient{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Gender:     sync.Gender(r.Gender),
		NIK:        r.NIK,
		Phone:      r.Phone,
		BirthDate:  r.BirthDate,
		Street:     r.Street,
		City:       r.City,
		PostalCode: r.PostalCode,
	}
}

// SystemOutcomeResponse reports the push result against one remote system.
type SystemOutcomeResponse struct {
	System  string `json:"system"`
	Outcome string `json:"outcome"`
	Ref     string `json:"ref,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterPatientResponse is returned after a patient registration.
type RegisterPatientResponse struct {
	ID       int64                   `json:"id"`
	NIK      string                  `json:"nik"`
	FrappeID string                  `json:"frappe_id,omitempty"`
	IHS      string                  `json:"ihs_number,omitempty"`
	Outcomes []SystemOutcomeResponse `json:"outcomes,omitempty"`
}

// SyncRunResponse mirrors a batch SyncResult.
type SyncRunResponse struct {
	Linked   int                   `json:"linked"`
	Created  int                   `json:"created"`
	Skipped  int                   `json:"skipped"`
	Failed   int                   `json:"failed"`
	Failures []SyncFailureResponse `json:"failures,omitempty"`
}

// SyncFailureResponse describes one failed item of a batch run.
type SyncFailureResponse struct {
	ItemID  string `json:"item_id"`
	Class   string `json:"class"`
	Message string `json:"message"`
}

// NewSyncRunResponse converts a domain result
func NewSyncRunResponse(result *sync.SyncResult) SyncRunResponse {
	resp := SyncRunResponse{}
	if result == nil {
		return resp
	}
	resp.Linked = result.Linked
	resp.Created = result.Created
	resp.Skipped = result.Skipped
	resp.Failed = result.Failed
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, SyncFailureResponse{
			ItemID:  f.ItemID,
			Class:   string(f.Class),
			Message: f.Message,
		})
	}
	return resp
}

// SyncJobResponse is one entry of the scheduler's recent job log.
type SyncJobResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Kind        string     `json:"kind,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	RetryCount  int        `json:"retry_count"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Linked      int        `json:"linked"`
	Created     int        `json:"created"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
}

// RegistryPatientResponse is the national registry lookup result.
type RegistryPatientResponse struct {
	IHSNumber string `json:"ihs_number"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
}

// RegistryPractitionerResponse is the national registry practitioner lookup result.
type RegistryPractitionerResponse struct {
	IHSPractitionerNumber string `json:"ihs_practitioner_number"`
	Name                  string `json:"name"`
	Gender                string `json:"gender"`
	BirthDate             string `json:"birth_date"`
}

// KFAProductResponse is one national drug catalogue entry.
type KFAProductResponse struct {
	KFACode      string `json:"kfa_code"`
	Name         string `json:"name"`
	TemplateName string `json:"template_name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Active       bool   `json:"active"`
}

// KFASearchRequest is the query for catalogue search.
type KFASearchRequest struct {
	Query string `form:"query" binding:"required,min=2"`
	Page  int    `form:"page" binding:"omitempty,min=1"`
	Size  int    `form:"size" binding:"omitempty,min=1,max=100"`
}
