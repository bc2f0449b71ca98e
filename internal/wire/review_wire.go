package wire

import (
	"artisan-marketplace/internal/adaptor"
	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/middleware"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReview(r chi.Router, reviewHandler *adaptor.ReviewHandler, config *utils.Config, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/artisans/{id}/reviews - View artisan reviews (public)
	r.Get("/api/artisans/{id}/reviews", reviewHandler.GetArtisanReviews)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		// POST /api/reviews - Customer of a completed booking
		r.With(middleware.RequireRole(log, entity.RoleCustomer)).Post("/api/reviews", reviewHandler.CreateReview)

		// DELETE /api/reviews/{id} - Author or admin
		r.Delete("/api/reviews/{id}", reviewHandler.DeleteReview)
	})
}
