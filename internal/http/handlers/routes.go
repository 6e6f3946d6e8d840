package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/access"
	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/middleware"
)

// RouteHandler publishes the frontend route policy and evaluates it for
// the current visitor. The answers only drive browser navigation; API
// routes are gated independently.
type RouteHandler struct {
	policy access.RoutePolicy
}

func NewRouteHandler(policy access.RoutePolicy) *RouteHandler {
	return &RouteHandler{policy: policy}
}

func (h *RouteHandler) Register(r chi.Router, sessions *middleware.Sessions) {
	r.Get("/api/route-policy", h.handlePolicy)
	r.With(sessions.Optional).Get("/api/route-guard", h.handleGuard)
}

func (h *RouteHandler) handlePolicy(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "policy": h.policy})
}

func (h *RouteHandler) handleGuard(w http.ResponseWriter, r *http.Request) {
	var state access.ClientState
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		state = access.ClientState{
			Authenticated:         true,
			IsAdmin:               p.IsAdmin,
			CanAccessUserFeatures: p.CanAccessUserFeatures,
		}
	}
	path := r.URL.Query().Get("path")
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"path":     path,
		"decision": h.policy.Guard(path, state),
	})
}
