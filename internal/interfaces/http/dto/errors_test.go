package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/reception/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	for _, tt := range []struct {
		code string
		want int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusConflict},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"NOT_FOUND", http.StatusNotFound},
		{"RECEPTION_NOT_FOUND", http.StatusInternalServerError},
	} {
		assert.Equal(t, tt.want, GetHTTPStatus(tt.code), tt.code)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeConcurrencyConflict, NormalizeErrorCode("CONCURRENCY_CONFLICT"))
	assert.Equal(t, ErrCodeDuplicateRequest, NormalizeErrorCode("DUPLICATE_REQUEST"))
	assert.Equal(t, "RECEPTION_NOT_FOUND", NormalizeErrorCode("RECEPTION_NOT_FOUND"))
	assert.Equal(t, ErrCodeInvalidJSON, NormalizeErrorCode(ErrCodeInvalidJSON))
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusForKind(shared.KindValidation, false))
	assert.Equal(t, http.StatusConflict, StatusForKind(shared.KindIllegalTransition, false))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForKind(shared.KindPersistence, true))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(shared.KindPersistence, false))
}

func TestErrorResponseFor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"validation", shared.NewValidationError("INVALID_QUANTITY", "bad qty"), http.StatusBadRequest, "INVALID_QUANTITY", false},
		{"not found", shared.NewNotFoundError("RECEPTION_NOT_FOUND", "missing"), http.StatusNotFound, "RECEPTION_NOT_FOUND", false},
		{"illegal transition", shared.NewIllegalTransitionError("ILLEGAL_TRANSITION", "no"), http.StatusConflict, "ILLEGAL_TRANSITION", false},
		{"retryable store failure", shared.NewPersistenceError("STORE_UNAVAILABLE", "down", errors.New("dial tcp"), true), http.StatusServiceUnavailable, "STORE_UNAVAILABLE", true},
		{"store failure", shared.NewPersistenceError("STORE_FAILURE", "failed", errors.New("syntax"), false), http.StatusInternalServerError, "STORE_FAILURE", false},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, ErrCodeConcurrencyConflict, true},
		{"duplicate request", shared.ErrDuplicateRequest, http.StatusConflict, ErrCodeDuplicateRequest, false},
		{"wrapped", fmt.Errorf("accept: %w", shared.NewNotFoundError("PRODUCT_NOT_FOUND", "gone")), http.StatusNotFound, "PRODUCT_NOT_FOUND", false},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := ErrorResponseFor(tt.err, "req-1")
			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.retryable, resp.Error.Retryable)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestErrorResponseFor_HidesCause(t *testing.T) {
	err := shared.NewPersistenceError("STORE_FAILURE", "Reception store failure", errors.New("pq: password authentication failed"), false)

	_, resp := ErrorResponseFor(err, "")
	data, jerr := json.Marshal(resp)
	require.NoError(t, jerr)
	assert.NotContains(t, string(data), "password")
	assert.Contains(t, string(data), "Reception store failure")
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "supplier_id", Message: "This field is required"},
		{Field: "expected_quantity", Message: "Must be greater than 0"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	empty := NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, empty.Meta.TotalPages)
}
