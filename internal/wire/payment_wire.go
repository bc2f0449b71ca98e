package wire

import (
	"artisan-marketplace/internal/adaptor"
	"artisan-marketplace/internal/data/entity"
	"artisan-marketplace/pkg/middleware"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, config *utils.Config, log *zap.Logger) {
	r.Route("/api/payments", func(r chi.Router) {
		// POST /api/payments/webhook - Gateway callback, authenticated by signature
		r.Post("/webhook", paymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(config.JWT.Secret, log))

			// GET /api/payments/transactions - Caller's ledger entries
			r.Get("/transactions", paymentHandler.ListTransactions)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(log, entity.RoleCustomer))

				// POST /api/payments/intent - Start paying for a booking
				r.Post("/intent", paymentHandler.CreateIntent)

				// POST /api/payments/confirm - Settle a succeeded booking payment
				r.Post("/confirm", paymentHandler.ConfirmPayment)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(log, entity.RoleArtisan))

				// POST /api/payments/subscription/intent - Start a tier purchase
				r.Post("/subscription/intent", paymentHandler.CreateSubscriptionIntent)

				// POST /api/payments/subscription/confirm - Activate the purchased tier
				r.Post("/subscription/confirm", paymentHandler.ConfirmSubscription)
			})
		})
	})
}
