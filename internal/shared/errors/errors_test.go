package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestAppErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantType ErrorType
		wantCode int
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("missing"), ErrorTypeNotFound, http.StatusNotFound},
		{"forbidden", NewForbiddenError("no"), ErrorTypeForbidden, http.StatusForbidden},
		{"payment required", NewPaymentRequiredError("quota"), ErrorTypePaymentRequired, http.StatusPaymentRequired},
		{"unavailable", NewServiceUnavailableError("down"), ErrorTypeServiceUnavailable, http.StatusServiceUnavailable},
		{"bad gateway", NewBadGatewayError("upstream"), ErrorTypeBadGateway, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantCode, tt.err.Code)
		})
	}
}

func TestAppError_ErrorIncludesDetails(t *testing.T) {
	err := NewConflictError("already exists", "sub_123")
	assert.Equal(t, "conflict: already exists (sub_123)", err.Error())
	assert.Equal(t, "not_found: gone", NewNotFoundError("gone").Error())
}

func TestGetAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewNotFoundError("plan not found"))

	assert.True(t, IsAppError(wrapped))
	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsConflictError(wrapped))
	assert.Nil(t, GetAppError(errors.New("plain")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(errors.New("Error 1062 (23000): Duplicate entry 'sub_1' for key 'uk_external'")))
	assert.True(t, IsDuplicateError(errors.New("UNIQUE constraint failed: subscriptions.external_subscription_id")))
	assert.True(t, IsDuplicateError(errors.New("pq: duplicate key value violates unique constraint")))
	assert.True(t, IsDuplicateError(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.False(t, IsDuplicateError(errors.New("connection refused")))
	assert.False(t, IsDuplicateError(nil))
}
