package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/databrowser/internal/workbench"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *workbench.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Containers.
	r.Get("/containers", h.ListContainers)
	r.Delete("/containers/{no}", h.DeleteContainer)
	r.Put("/containers/{no}/keep", h.SetKeep)
	r.Post("/containers/{no}/reset", h.ResetVisibility)
	r.Post("/containers/{no}/save", h.Save)
	r.Get("/containers/{no}/{category}", h.ListObjects)

	// Views.
	r.Post("/containers/{no}/{category}/{id}/view", h.ShowObject)
	r.Delete("/containers/{no}/{category}/{id}/view", h.HideObject)
	r.Get("/views", h.ListViews)

	// Selection.
	r.Get("/current/{category}", h.Current)
	r.Put("/current", h.Select)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
