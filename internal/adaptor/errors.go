package adaptor

import (
	"errors"
	"net/http"

	"artisan-marketplace/pkg/apperr"
	"artisan-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// writeServiceError maps a service error onto the response envelope.
// Classified errors keep their message and details; anything else is a 500
// with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, operation string) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)

	var appErr *apperr.AppError
	if code == apperr.ErrInternal || !errors.As(err, &appErr) {
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Stack("stack"),
		)
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", code),
		zap.String("operation", operation),
	}
	if status >= http.StatusInternalServerError {
		log.Error(operation+" failed", fields...)
	} else {
		log.Warn(operation+" failed", fields...)
	}

	var details any
	if d := appErr.Details(); len(d) > 0 {
		details = d
	}
	utils.ResponseJSON(w, status, false, appErr.Message(), nil, details)
}
