package wire

import (
	"artisan-marketplace/internal/adaptor"
	"artisan-marketplace/pkg/middleware"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireUser(r chi.Router, userHandler *adaptor.UserHandler, config *utils.Config, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/artisans/{id} - Artisan profile with rating and subscription tier
	r.Get("/api/artisans/{id}", userHandler.GetArtisan)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		// GET /api/me - Current user (plus artisan profile)
		r.Get("/api/me", userHandler.GetProfile)
	})
}
