package wire

import (
	"artisan-marketplace/internal/adaptor"
	"artisan-marketplace/pkg/middleware"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(r chi.Router, adminHandler *adaptor.AdminHandler, config *utils.Config, log *zap.Logger) {
	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin", func(r chi.Router) {
		// Require both authentication AND admin role
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))
		r.Use(middleware.Admin(log))

		// GET /api/admin/platform-fees - Effective fee per tier
		r.Get("/platform-fees", adminHandler.ListPlatformFees)

		// PUT /api/admin/platform-fees/{tier} - Override a tier's fee
		r.Put("/platform-fees/{tier}", adminHandler.UpsertPlatformFee)

		// POST /api/admin/subscriptions/sweep - Warn and downgrade expiring tiers
		r.Post("/subscriptions/sweep", adminHandler.SweepSubscriptions)

		// POST /api/admin/refunds/reconcile - Retry refunds for cancelled paid bookings
		r.Post("/refunds/reconcile", adminHandler.ReconcileRefunds)
	})
}
