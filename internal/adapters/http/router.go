package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/terraregistry/auth-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for auth use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to the application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/refresh", handler.refresh)
		r.Get("/email/verify", handler.emailVerify)
		r.Post("/email/verify", handler.emailVerify)
		r.Post("/password/reset-request", handler.passwordResetRequest)
		r.Post("/password/reset", handler.passwordReset)
		r.Post("/wallet/login-challenge", handler.walletLoginChallenge)
		r.Post("/wallet/verify", handler.walletVerify)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/logout", handler.logout)
			r.Post("/wallet/challenge", handler.walletChallenge)
			r.Post("/wallet/link", handler.walletLink)
		})
	})

	return r
}
