package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pulsehq/socialpulse/internal/dashboard"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ctrl *dashboard.Controller, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(ctrl)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Auth session.
	r.Get("/session", h.Session)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Put("/profile", h.SetProfile)

	// Biometric scan flow.
	r.Get("/scan", h.ScanState)
	r.Post("/scan", h.RequestScan)
	r.Delete("/scan", h.CancelScan)
	r.Put("/settings/biometric", h.SetBiometric)

	// Mirrored projections.
	r.Get("/clients", h.ListClients)
	r.Get("/posts", h.ListPosts)
	r.Get("/messages", h.ListMessages)
	r.Get("/competitors", h.ListCompetitors)
	r.Get("/badges", h.Badges)

	// Workflow mutators.
	r.Post("/posts", h.CreatePost)
	r.Patch("/posts/{id}/status", h.SetPostStatus)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
