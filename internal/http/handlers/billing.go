package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/billing"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/middleware"
	"github.com/hongminglow/access-web-be/internal/models/dto"
)

const maxWebhookBytes = 64 << 10

// BillingRoutes selects which payment endpoints are mounted.
type BillingRoutes struct {
	Payments bool
	Webhook  bool
}

// BillingHandler serves plans, subscriptions and payments.
type BillingHandler struct {
	billing *billing.Reconciler
	log     logging.Logger
}

func NewBillingHandler(rec *billing.Reconciler, log logging.Logger) *BillingHandler {
	return &BillingHandler{billing: rec, log: log}
}

func (h *BillingHandler) Register(r chi.Router, sessions *middleware.Sessions, routes BillingRoutes) {
	r.Get("/api/pricing-plans", h.handlePlans)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Require)
		r.Get("/api/subscriptions/me", h.handleSubscription)
		r.Get("/api/payments/history", h.handleHistory)
		if routes.Payments {
			r.Post("/api/payments/create-payment-intent", h.handleCreateIntent)
			r.Post("/api/payments/confirm", h.handleConfirm)
		}
	})

	if routes.Webhook {
		r.Post("/api/webhooks/stripe", h.handleWebhook)
	}
}

func (h *BillingHandler) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.billing.Plans(r.Context(), false)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "plans": plans})
}

func (h *BillingHandler) handleSubscription(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	sub, err := h.billing.GetUserSubscription(r.Context(), p.ID)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "subscription": sub})
}

func (h *BillingHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	payments, err := h.billing.PaymentHistory(r.Context(), p.ID)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "payments": payments})
}

func (h *BillingHandler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	var req dto.CreatePaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	res, err := h.billing.CreatePaymentIntent(r.Context(), p.ID, req.PlanID)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"clientSecret":    res.ClientSecret,
		"paymentIntentId": res.PaymentIntentID,
		"plan":            res.Plan,
	})
}

func (h *BillingHandler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	var req dto.ConfirmPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	res, err := h.billing.ConfirmPayment(r.Context(), p.ID, req.PaymentIntentID, req.PlanID)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Payment confirmed.",
		"subscription": res.Subscription,
		"payment":      res.Payment,
	})
}

func (h *BillingHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		respond.Error(r.Context(), w, h.log,
			apperr.Wrap(apperr.ErrValidation, apperr.CodeValidation, "Could not read webhook body.", err))
		return
	}
	evt, err := h.billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.log.Warn(r.Context(), "webhook rejected", "event_id", evt.ID)
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"received": true})
}
