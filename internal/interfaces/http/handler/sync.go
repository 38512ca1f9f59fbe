package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/scheduler"
	"github.com/klinik/backend/internal/interfaces/http/dto"
)

// JobHistory exposes the scheduler's recent job log.
type JobHistory interface {
	GetJobHistory(limit int) []*scheduler.Job
}

// SyncHandler handles reconciliation and pull requests.
type SyncHandler struct {
	BaseHandler
	service SyncService
	history JobHistory
}

// NewSyncHandler creates a new sync handler. history may be nil when the
// scheduler is disabled.
func NewSyncHandler(service SyncService, history JobHistory) *SyncHandler {
	return &SyncHandler{service: service, history: history}
}

// Run handles POST /api/sync/:kind/run. A run always answers 200 with the
// full batch result; item failures are reported in the body, not the status.
func (h *SyncHandler) Run(c *gin.Context) {
	kind := sync.EntityKind(c.Param("kind"))
	if !kind.IsValid() {
		h.BadRequest(c, "unknown entity kind: "+c.Param("kind"))
		return
	}

	result, err := h.service.Run(c.Request.Context(), kind)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}
	h.Success(c, dto.NewSyncRunResponse(result))
}

// Drain handles POST /api/sync/drain, working through pending outbox rows.
func (h *SyncHandler) Drain(c *gin.Context) {
	limit, ok := h.queryLimit(c)
	if !ok {
		return
	}
	result, err := h.service.DrainPending(c.Request.Context(), limit)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}
	h.Success(c, dto.NewSyncRunResponse(result))
}

// PullPatients handles POST /api/sync/patients/pull.
func (h *SyncHandler) PullPatients(c *gin.Context) {
	limit, ok := h.queryLimit(c)
	if !ok {
		return
	}
	result, err := h.service.PullPatients(c.Request.Context(), limit)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}
	h.Success(c, dto.NewSyncRunResponse(result))
}

// PullFormulary handles POST /api/sync/formulary/pull.
func (h *SyncHandler) PullFormulary(c *gin.Context) {
	limit, ok := h.queryLimit(c)
	if !ok {
		return
	}
	result, err := h.service.PullFormularyItems(c.Request.Context(), limit)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}
	h.Success(c, dto.NewSyncRunResponse(result))
}

// Jobs handles GET /api/sync/jobs, listing recent scheduler runs.
func (h *SyncHandler) Jobs(c *gin.Context) {
	if h.history == nil {
		h.Success(c, []dto.SyncJobResponse{})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	jobs := h.history.GetJobHistory(limit)
	resp := make([]dto.SyncJobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, dto.SyncJobResponse{
			ID:          job.ID.String(),
			Type:        string(job.Type),
			Kind:        job.Kind.String(),
			Status:      string(job.Status),
			Error:       job.Error,
			RetryCount:  job.RetryCount,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			Linked:      job.Linked,
			Created:     job.Created,
			Skipped:     job.Skipped,
			Failed:      job.Failed,
		})
	}
	h.Success(c, resp)
}

// queryLimit parses the optional limit query parameter. Zero means the
// service default.
func (h *SyncHandler) queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		h.BadRequest(c, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}
