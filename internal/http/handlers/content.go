package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/content"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
)

// ContentHandler serves CMS pages and the site navigation.
type ContentHandler struct {
	resolver        *content.Resolver
	log             logging.Logger
	redirectAfterMS int
}

// NewContentHandler builds the handler. redirectAfterMS is how long the
// not-found page is shown before the SPA navigates home.
func NewContentHandler(resolver *content.Resolver, log logging.Logger, redirectAfterMS int) *ContentHandler {
	return &ContentHandler{resolver: resolver, log: log, redirectAfterMS: redirectAfterMS}
}

func (h *ContentHandler) Register(r chi.Router) {
	r.Get("/api/content/pages/{slug}", h.handlePage)
	r.Get("/api/content/navigation", h.handleNavigation)
}

func (h *ContentHandler) handlePage(w http.ResponseWriter, r *http.Request) {
	out := h.resolver.ResolvePage(r.Context(), chi.URLParam(r, "slug"))
	switch out.Status {
	case content.Found:
		respond.JSON(w, http.StatusOK, map[string]any{"success": true, "page": out.Page})
	case content.NotFound:
		respond.Error(r.Context(), w, h.log,
			apperr.New(apperr.ErrNotFound, apperr.CodePageNotFound, "Page not found.").
				With("redirectAfterMs", h.redirectAfterMS))
	default:
		respond.Error(r.Context(), w, h.log,
			apperr.Wrap(apperr.ErrExternalService, apperr.CodeContentUnavailable,
				"Content is temporarily unavailable.", out.Err).With("retryable", true))
	}
}

func (h *ContentHandler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   h.resolver.ResolveNavigation(r.Context()),
	})
}
