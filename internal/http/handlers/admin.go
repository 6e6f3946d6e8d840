package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/billing"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/middleware"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/models/dto"
	"github.com/hongminglow/access-web-be/internal/storage"
)

// AdminHandler serves the admin portal API. Every route requires an admin
// session.
type AdminHandler struct {
	billing  *billing.Reconciler
	accounts storage.AccountStore
	log      logging.Logger
}

func NewAdminHandler(rec *billing.Reconciler, accounts storage.AccountStore, log logging.Logger) *AdminHandler {
	return &AdminHandler{billing: rec, accounts: accounts, log: log}
}

func (h *AdminHandler) Register(r chi.Router, sessions *middleware.Sessions) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(sessions.Require)
		r.Use(middleware.RequireRole(models.RoleAdmin, h.log))
		r.Get("/pricing-plans", h.handleListPlans)
		r.Post("/pricing-plans", h.handleCreatePlan)
		r.Post("/accounts/{id}/disable", h.handleDisable)
	})
}

func (h *AdminHandler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.billing.Plans(r.Context(), true)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "plans": plans})
}

func (h *AdminHandler) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	plan, err := h.billing.CreatePlan(r.Context(), models.Plan{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Period:      req.Period,
		Features:    req.Features,
		IsPopular:   req.IsPopular,
		IsActive:    req.IsActive == nil || *req.IsActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"success": true, "plan": plan})
}

func (h *AdminHandler) handleDisable(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	id := chi.URLParam(r, "id")
	var req dto.DisableAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	disabled := req.Disabled == nil || *req.Disabled
	if disabled && id == p.ID {
		respond.Error(r.Context(), w, h.log,
			apperr.New(apperr.ErrValidation, apperr.CodeValidation, "You cannot disable your own account."))
		return
	}

	if err := h.accounts.SetDisabled(r.Context(), id, disabled); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperr.New(apperr.ErrNotFound, apperr.CodeNotFound, "Account not found.")
		}
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	h.log.Info(r.Context(), "account disabled flag changed", "account_id", id, "disabled", disabled, "by", p.ID)
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "accountId": id, "disabled": disabled})
}
