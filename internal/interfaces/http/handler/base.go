package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/erp/reception/internal/infrastructure/logger"
	"github.com/erp/reception/internal/interfaces/http/dto"
	"github.com/erp/reception/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts err to a response. Store failures are logged with
// their cause; the body only carries the DomainError message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, resp := dto.ErrorResponseFor(err, middleware.GetRequestID(c))
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// bindJSON binds the body and answers 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleBindingError(c, err)
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for bodies that may be empty
func (h *BaseHandler) bindOptionalJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleBindingError(c, err)
		return false
	}
	return true
}

// bindQuery binds the query string and answers 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleBindingError(c, err)
		return false
	}
	return true
}

// uuidParam parses a UUID path parameter and answers 400 when it is malformed
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateParam parses "2006-01-02" or RFC 3339. A date-only upper bound
// covers the whole day.
func parseDateParam(value string, upper bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, shared.NewValidationError(dto.ErrCodeValidationFormat,
			"Invalid date "+value+": use YYYY-MM-DD or RFC 3339")
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
