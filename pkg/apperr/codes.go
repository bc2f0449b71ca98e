package apperr

import "net/http"

const (
	ErrInternal             = "INTERNAL"
	ErrNotFound             = "NOT_FOUND"
	ErrForbidden            = "FORBIDDEN"
	ErrUnauthorized         = "UNAUTHORIZED"
	ErrValidation           = "VALIDATION"
	ErrInvalidTransition    = "INVALID_TRANSITION"
	ErrInvalidState         = "INVALID_STATE"
	ErrNotVerified          = "NOT_VERIFIED"
	ErrPaymentNotSuccessful = "PAYMENT_NOT_SUCCESSFUL"
	ErrPaymentGateway       = "PAYMENT_GATEWAY"
	ErrDuplicateKey         = "DUPLICATE_KEY"
	ErrConflict             = "CONFLICT"
)

var codeStatus = map[string]int{
	ErrInternal:             http.StatusInternalServerError,
	ErrNotFound:             http.StatusNotFound,
	ErrForbidden:            http.StatusForbidden,
	ErrUnauthorized:         http.StatusUnauthorized,
	ErrValidation:           http.StatusBadRequest,
	ErrInvalidTransition:    http.StatusBadRequest,
	ErrInvalidState:         http.StatusBadRequest,
	ErrNotVerified:          http.StatusBadRequest,
	ErrPaymentNotSuccessful: http.StatusBadRequest,
	ErrPaymentGateway:       http.StatusBadGateway,
	ErrDuplicateKey:         http.StatusBadRequest,
	ErrConflict:             http.StatusConflict,
}

// HTTPStatus maps an error code to its HTTP status. Unknown codes are 500.
func HTTPStatus(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
