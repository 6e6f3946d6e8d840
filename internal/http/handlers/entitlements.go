package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/access"
	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/middleware"
)

// EntitlementsHandler reports which plan features the caller may use.
type EntitlementsHandler struct {
	subs middleware.SubscriptionSource
	log  logging.Logger
}

func NewEntitlementsHandler(subs middleware.SubscriptionSource, log logging.Logger) *EntitlementsHandler {
	return &EntitlementsHandler{subs: subs, log: log}
}

func (h *EntitlementsHandler) Register(r chi.Router, sessions *middleware.Sessions) {
	r.Route("/api/entitlements", func(r chi.Router) {
		r.Use(sessions.Require)
		r.Get("/", h.handleList)
		r.Get("/{feature}", h.handleFeature)
	})
}

func (h *EntitlementsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	sub, err := h.subs.GetUserSubscription(r.Context(), p.ID)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"plan":     sub.Plan,
		"active":   sub.ActiveAt(time.Now()),
		"features": access.Entitlements(p, sub, time.Now()),
	})
}

// handleFeature runs the feature gate for the requested feature: 200 when
// entitled, 402 with the required plan otherwise.
func (h *EntitlementsHandler) handleFeature(w http.ResponseWriter, r *http.Request) {
	feature := chi.URLParam(r, "feature")
	if !access.KnownFeature(feature) {
		respond.Error(r.Context(), w, h.log, apperr.New(apperr.ErrNotFound, apperr.CodeNotFound, "Unknown feature.").
			With("feature", feature))
		return
	}
	granted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]any{"success": true, "feature": feature, "entitled": true})
	})
	middleware.RequireFeature(feature, h.subs, h.log)(granted).ServeHTTP(w, r)
}
