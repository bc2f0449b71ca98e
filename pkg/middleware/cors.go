package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the given origins. An empty list or "*" allows any origin.
// Only real preflight requests are answered here; every other OPTIONS
// request is routed normally.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature"},
		MaxAge:         300,
	})
}
