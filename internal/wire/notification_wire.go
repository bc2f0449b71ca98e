package wire

import (
	"artisan-marketplace/internal/adaptor"
	"artisan-marketplace/pkg/middleware"
	"artisan-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireNotification(r chi.Router, notificationHandler *adaptor.NotificationHandler, config *utils.Config, log *zap.Logger) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(middleware.AuthJWT(config.JWT.Secret, log))

		r.Get("/", notificationHandler.List)
		r.Patch("/read-all", notificationHandler.MarkAllRead)
		r.Patch("/{id}/read", notificationHandler.MarkRead)
	})
}
