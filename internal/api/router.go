package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/clipmaster/internal/clipservice"
	"github.com/starford/clipmaster/internal/metrics"
	"github.com/starford/clipmaster/internal/prompt"
	"github.com/starford/clipmaster/internal/settings"
)

// Deps are the services the API exposes.
type Deps struct {
	Clips    *clipservice.Controller
	Prompts  *prompt.Set
	Settings *settings.Store
	Metrics  metrics.Recorder
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(d Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	if d.Metrics != nil {
		r.Use(MetricsMiddleware(d.Metrics))
	}
	r.Use(AuthMiddleware(authEnabled, token))

	// History.
	r.Get("/history", h.ListHistory)
	r.Delete("/history", h.ClearHistory)
	r.Get("/history/{id}", h.GetClip)
	r.Get("/history/{id}/payload", h.GetPayload)
	r.Post("/history/{id}/copy", h.CopyClip)
	r.Post("/history/{id}/transform", h.TransformClip)
	r.Delete("/history/{id}", h.DeleteClip)

	// Search.
	r.Get("/search", h.Search)

	// Prompts.
	r.Get("/prompts", h.ListPrompts)
	r.Post("/prompts", h.AddPrompt)
	r.Put("/prompts", h.UpdatePrompt)
	r.Delete("/prompts", h.DeletePrompt)
	r.Put("/prompts/active", h.SetActivePrompt)

	// Models and settings.
	r.Get("/models", h.ListModels)
	r.Post("/models/refresh", h.RefreshModels)
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// Hotkey commands.
	r.Post("/commands/{name}", h.RunCommand)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
