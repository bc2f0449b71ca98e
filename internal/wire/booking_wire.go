package wire

import (
	"artisan-marketplace/internal/adaptor"
	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/middleware"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, config *utils.Config, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	// GET /api/artisans/{id}/availability?date=YYYY-MM-DD[&start=HH:MM&end=HH:MM]
	r.Get("/api/artisans/{id}/availability", bookingHandler.GetAvailability)

	// ==================== PROTECTED ROUTES ====================
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		// POST /api/bookings - Customers only
		r.With(middleware.RequireRole(log, entity.RoleCustomer)).Post("/", bookingHandler.CreateBooking)

		// GET /api/bookings - Scoped to the caller (admin sees all)
		r.Get("/", bookingHandler.ListBookings)

		// GET /api/bookings/{id} - Participants and admin
		r.Get("/{id}", bookingHandler.GetBooking)

		// PATCH /api/bookings/{id}/status - Owning artisan or admin
		r.With(middleware.RequireRole(log, entity.RoleArtisan, entity.RoleAdmin)).Patch("/{id}/status", bookingHandler.UpdateStatus)

		// POST /api/bookings/{id}/cancel - Participants and admin
		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
	})
}
