package dto

import (
	"errors"
	"net/http"

	"github.com/erp/reception/internal/domain/shared"
)

// Transport error codes, ERR_<CATEGORY>[_<DETAIL>]. Reception-specific codes
// such as RECEPTION_NOT_FOUND pass through unchanged.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeUnavailable         = "ERR_UNAVAILABLE"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeValidationFormat    = "ERR_VALIDATION_FORMAT"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeDuplicateRequest    = "ERR_DUPLICATE_REQUEST"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON         = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// statusByCode fixes the status of the transport codes. Other codes take it
// from the DomainError kind.
var statusByCode = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeUnavailable:         http.StatusServiceUnavailable,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeValidationFormat:    http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,
	ErrCodeInvalidState:        http.StatusConflict,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
}

// bareCodes are the generic shared codes that get the ERR_ prefix on the wire
var bareCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"INVALID_STATE":        ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"DUPLICATE_REQUEST":    ErrCodeDuplicateRequest,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode returns the wire form of a code
func NormalizeErrorCode(code string) string {
	if wire, ok := bareCodes[code]; ok {
		return wire
	}
	return code
}

// GetHTTPStatus returns the status of a transport code, 500 for anything else
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[NormalizeErrorCode(code)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusForKind maps a DomainError kind to its HTTP status. Retryable store
// failures are 503 so clients know to try again.
func StatusForKind(kind shared.ErrorKind, retryable bool) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindIllegalTransition:
		return http.StatusConflict
	case shared.KindPersistence:
		if retryable {
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// ErrorResponseFor converts err to a status code and envelope.
// Only the DomainError message is exposed; causes stay in the logs.
func ErrorResponseFor(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID)
	}

	code := NormalizeErrorCode(de.Code)
	status, fixed := statusByCode[code]
	if !fixed {
		status = StatusForKind(de.Kind, de.Retryable)
	}
	resp := NewErrorResponseWithRequestID(code, de.Message, requestID)
	resp.Error.Retryable = de.Retryable
	return status, resp
}
