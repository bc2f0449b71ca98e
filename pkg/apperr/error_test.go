package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrInvalidTransition, http.StatusBadRequest},
		{ErrInvalidState, http.StatusBadRequest},
		{ErrValidation, http.StatusBadRequest},
		{ErrPaymentNotSuccessful, http.StatusBadRequest},
		{ErrPaymentGateway, http.StatusBadGateway},
		{ErrDuplicateKey, http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{ErrInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestCodeOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("confirm payment: %w", PaymentNotSuccessful("requires_payment_method"))

	assert.Equal(t, ErrPaymentNotSuccessful, CodeOf(err))
	assert.True(t, Is(err, ErrPaymentNotSuccessful))
	assert.Equal(t, ErrInternal, CodeOf(errors.New("boom")))
}

func TestInvalidTransition_Details(t *testing.T) {
	err := InvalidTransition("completed", "pending")

	assert.Equal(t, "completed", err.Details()["from"])
	assert.Equal(t, "pending", err.Details()["to"])
	assert.Contains(t, err.Error(), "completed")
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := PaymentGateway(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrPaymentGateway, err.Code())
}
