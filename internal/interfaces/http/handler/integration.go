package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/satusehat"
	"github.com/klinik/backend/internal/interfaces/http/dto"
	"github.com/klinik/backend/internal/interfaces/http/middleware"
)

// RegistryClient covers the national registry lookups the front desk uses
// before registering someone locally.
type RegistryClient interface {
	GetPatientByNIK(ctx context.Context, nik string) (*satusehat.PatientSummary, error)
	GetPractitionerByNIK(ctx context.Context, nik string) (*satusehat.PractitionerSummary, error)
	SearchKFAProducts(ctx context.Context, keyword string, page, size int) ([]satusehat.KFAProduct, int, error)
}

// IntegrationHandler exposes direct registry and drug catalogue lookups.
type IntegrationHandler struct {
	BaseHandler
	registry RegistryClient
}

// NewIntegrationHandler creates a new integration handler
func NewIntegrationHandler(registry RegistryClient) *IntegrationHandler {
	return &IntegrationHandler{registry: registry}
}

// GetPatient handles GET /api/integration/satusehat/patient/:nik.
func (h *IntegrationHandler) GetPatient(c *gin.Context) {
	nik := c.Param("nik")
	if !sync.ValidNIK(nik) {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidIdentifier), dto.ErrCodeInvalidIdentifier, "nik must be 16 digits")
		return
	}

	summary, err := h.registry.GetPatientByNIK(c.Request.Context(), nik)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Success(c, dto.RegistryPatientResponse{
		IHSNumber: summary.IHSNumber,
		Name:      summary.Name,
		Gender:    summary.Gender,
		BirthDate: summary.BirthDate,
	})
}

// GetPractitioner handles GET /api/integration/satusehat/practitioner/:nik.
func (h *IntegrationHandler) GetPractitioner(c *gin.Context) {
	nik := c.Param("nik")
	if !sync.ValidNIK(nik) {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidIdentifier), dto.ErrCodeInvalidIdentifier, "nik must be 16 digits")
		return
	}

	summary, err := h.registry.GetPractitionerByNIK(c.Request.Context(), nik)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	h.Success(c, dto.RegistryPractitionerResponse{
		IHSPractitionerNumber: summary.IHSPractitionerNumber,
		Name:                  summary.Name,
		Gender:                summary.Gender,
		BirthDate:             summary.BirthDate,
	})
}

// SearchProducts handles GET /api/integration/kfa/products.
func (h *IntegrationHandler) SearchProducts(c *gin.Context) {
	var req dto.KFASearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Size == 0 {
		req.Size = 20
	}

	products, total, err := h.registry.SearchKFAProducts(c.Request.Context(), req.Query, req.Page, req.Size)
	if err != nil {
		h.HandleSyncError(c, err)
		return
	}

	items := make([]dto.KFAProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, dto.KFAProductResponse{
			KFACode:      p.KFACode,
			Name:         p.Name,
			TemplateName: p.ProductTemplateName,
			Manufacturer: p.Manufacturer,
			Active:       p.Active,
		})
	}

	h.Success(c, gin.H{
		"items": items,
		"total": total,
		"page":  req.Page,
		"size":  req.Size,
	})
}
