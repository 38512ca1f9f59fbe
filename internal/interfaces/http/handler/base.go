package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appsync "github.com/klinik/backend/internal/application/sync"
	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return ""
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleSyncError converts sync domain errors to HTTP responses
func (h *BaseHandler) HandleSyncError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var code string
	switch {
	case errors.Is(err, sync.ErrInvalidIdentifier):
		code = dto.ErrCodeInvalidIdentifier
	case errors.Is(err, sync.ErrNotFound):
		code = dto.ErrCodeNotFound
	case errors.Is(err, sync.ErrAuthFailed):
		code = dto.ErrCodeUpstreamAuth
	case errors.Is(err, sync.ErrUnavailable):
		code = dto.ErrCodeUpstreamUnavailable
	case errors.Is(err, sync.ErrRemoteRejected):
		code = dto.ErrCodeUpstreamRejected
	case errors.Is(err, sync.ErrUnsupported), errors.Is(err, sync.ErrKindNotSupported):
		code = dto.ErrCodeUnsupported
	case errors.Is(err, appsync.ErrUnknownKind):
		code = dto.ErrCodeBadRequest
	default:
		h.InternalError(c, "An unexpected error occurred")
		return
	}

	h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
}
