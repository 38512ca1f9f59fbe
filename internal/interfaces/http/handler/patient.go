package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appsync "github.com/klinik/backend/internal/application/sync"
	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/interfaces/http/dto"
	"github.com/klinik/backend/internal/interfaces/http/middleware"
)

// SyncService is the application surface the HTTP layer depends on.
type SyncService interface {
	RegisterPatient(ctx context.Context, p *sync.Patient, mode appsync.RegisterMode) ([]appsync.SystemOutcome, error)
	Run(ctx context.Context, kind sync.EntityKind) (*sync.SyncResult, error)
	DrainPending(ctx context.Context, limit int) (*sync.SyncResult, error)
	PullPatients(ctx context.Context, limit int) (*sync.SyncResult, error)
	PullFormularyItems(ctx context.Context, limit int) (*sync.SyncResult, error)
}

// PatientHandler handles patient registration requests.
type PatientHandler struct {
	BaseHandler
	service SyncService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(service SyncService) *PatientHandler {
	return &PatientHandler{service: service}
}

// Register handles POST /api/patients. The optional mode query parameter
// selects between an immediate push (sync, the default) and a deferred
// registration that leaves outbox rows for the scheduler.
func (h *PatientHandler) Register(c *gin.Context) {
	var req dto.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	mode := appsync.ModeSync
	switch c.Query("mode") {
	case "", "sync":
	case "deferred":
		mode = appsync.ModeDeferred
	default:
		h.BadRequest(c, "mode must be sync or deferred")
		return
	}

	patient := req.ToDomain()
	outcomes, err := h.service.RegisterPatient(c.Request.Context(), patient, mode)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	resp := dto.RegisterPatientResponse{
		ID:       patient.ID,
		NIK:      patient.NIK,
		FrappeID: patient.FrappeID,
		IHS:      patient.IHSNumber,
	}
	for _, out := range outcomes {
		resp.Outcomes = append(resp.Outcomes, dto.SystemOutcomeResponse{
			System:  out.System.String(),
			Outcome: string(out.Outcome),
			Ref:     out.Ref,
			Error:   out.Error,
		})
		if out.Ref == "" {
			continue
		}
		switch out.System {
		case sync.SystemERP:
			resp.FrappeID = out.Ref
		case sync.SystemRegistry:
			resp.IHS = out.Ref
		}
	}

	h.Created(c, resp)
}
