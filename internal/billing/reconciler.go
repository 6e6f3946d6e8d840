package billing

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/redact"
	"github.com/hongminglow/access-web-be/internal/storage"
)

// BillingPeriod is how long one successful payment keeps a plan active.
const BillingPeriod = 30 * 24 * time.Hour

// Reconciler owns plans, subscriptions and payments.
type Reconciler struct {
	store       storage.Store
	provider    PaymentProvider
	trustPrefix bool
	log         logging.Logger
	now         func() time.Time
}

type Option func(*Reconciler)

// WithTrustClientPrefix restores the legacy confirmation shortcut that
// accepts any "pi_" identifier as paid without asking the provider. It is
// unsafe and every use is logged.
func WithTrustClientPrefix(trust bool) Option {
	return func(r *Reconciler) { r.trustPrefix = trust }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler builds the service. provider may be nil, in which case
// payment operations report the provider as unavailable.
func NewReconciler(store storage.Store, provider PaymentProvider, log logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{store: store, provider: provider, log: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type PaymentIntentResult struct {
	ClientSecret    string      `json:"clientSecret"`
	PaymentIntentID string      `json:"paymentIntentId"`
	Plan            models.Plan `json:"plan"`
}

type ConfirmResult struct {
	Payment      models.Payment      `json:"payment"`
	Subscription models.Subscription `json:"subscription"`
}

func unavailable(cause error) error {
	if cause == nil {
		return apperr.New(apperr.ErrExternalService, apperr.CodePaymentsUnavailable, "Payments are not available right now.")
	}
	return apperr.Wrap(apperr.ErrExternalService, apperr.CodePaymentsUnavailable, "Payment provider request failed.", cause)
}

func planNotFound() error {
	return apperr.New(apperr.ErrNotFound, apperr.CodePlanNotFound, "Plan not found.")
}

// GetUserSubscription returns the stored subscription. Accounts created
// before subscriptions were written at registration get a computed free
// plan; nothing is persisted on read.
func (r *Reconciler) GetUserSubscription(ctx context.Context, accountID string) (models.Subscription, error) {
	sub, err := r.store.FindSubscription(ctx, accountID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.FreeSubscription(accountID, r.now()), nil
	}
	return sub, err
}

func (r *Reconciler) Plans(ctx context.Context, includeInactive bool) ([]models.Plan, error) {
	return r.store.ListPlans(ctx, includeInactive)
}

func (r *Reconciler) CreatePlan(ctx context.Context, plan models.Plan) (models.Plan, error) {
	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		return models.Plan{}, apperr.New(apperr.ErrValidation, apperr.CodeValidation, "Plan name is required.").With("field", "name")
	}
	if plan.PriceCents < 0 {
		return models.Plan{}, apperr.New(apperr.ErrValidation, apperr.CodeValidation, "Plan price cannot be negative.").With("field", "priceCents")
	}
	if plan.Currency == "" {
		plan.Currency = "usd"
	}
	plan.Currency = strings.ToLower(plan.Currency)
	if plan.Period == "" {
		plan.Period = "month"
	}
	created, err := r.store.CreatePlan(ctx, plan)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.Plan{}, apperr.New(apperr.ErrConflict, apperr.CodePlanExists, "A plan with this name already exists.")
	}
	return created, err
}

func (r *Reconciler) PaymentHistory(ctx context.Context, accountID string) ([]models.Payment, error) {
	return r.store.ListPayments(ctx, accountID)
}

// CreatePaymentIntent prices the plan and asks the provider for an intent,
// creating the provider-side customer on first purchase.
func (r *Reconciler) CreatePaymentIntent(ctx context.Context, accountID string, planID int64) (PaymentIntentResult, error) {
	if r.provider == nil {
		return PaymentIntentResult{}, unavailable(nil)
	}
	plan, err := r.activePlan(ctx, planID)
	if err != nil {
		return PaymentIntentResult{}, err
	}

	account, err := r.store.FindAccountByID(ctx, accountID)
	if err != nil {
		return PaymentIntentResult{}, err
	}
	customerID := account.PaymentCustomerID
	if customerID == "" {
		customerID, err = r.provider.CreateCustomer(ctx, account.Email, account.Username,
			map[string]string{MetaAccountID: account.ID})
		if err != nil {
			return PaymentIntentResult{}, unavailable(err)
		}
		if err := r.store.SetPaymentCustomerID(ctx, account.ID, customerID); err != nil {
			return PaymentIntentResult{}, err
		}
	}

	intent, err := r.provider.CreatePaymentIntent(ctx, IntentRequest{
		Amount:     plan.PriceCents,
		Currency:   plan.Currency,
		CustomerID: customerID,
		Metadata: map[string]string{
			MetaAccountID: account.ID,
			MetaPlanID:    strconv.FormatInt(plan.ID, 10),
			MetaPlanName:  plan.Name,
		},
	})
	if err != nil {
		return PaymentIntentResult{}, unavailable(err)
	}
	r.log.Info(ctx, "payment intent created", "account_id", account.ID, "plan_id", plan.ID, "intent_id", intent.ID)
	return PaymentIntentResult{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID, Plan: plan}, nil
}

// ConfirmPayment activates the paid plan once the provider reports the
// intent as succeeded and it belongs to the caller. planID is only read by
// the legacy prefix shortcut.
func (r *Reconciler) ConfirmPayment(ctx context.Context, accountID, intentID string, planID int64) (ConfirmResult, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return ConfirmResult{}, apperr.New(apperr.ErrValidation, apperr.CodeValidation, "paymentIntentId is required.").
			With("field", "paymentIntentId")
	}

	if r.trustPrefix && strings.HasPrefix(intentID, "pi_") {
		r.log.Warn(ctx, "payment confirmed from client-supplied id without provider verification",
			"account_id", accountID, "intent_id", intentID)
		plan, err := r.activePlan(ctx, planID)
		if err != nil {
			return ConfirmResult{}, err
		}
		return r.activate(ctx, accountID, plan, Intent{
			ID: intentID, Status: IntentSucceeded, Amount: plan.PriceCents, Currency: plan.Currency,
		})
	}

	if r.provider == nil {
		return ConfirmResult{}, unavailable(nil)
	}
	intent, err := r.provider.GetPaymentIntent(ctx, intentID)
	if err != nil {
		return ConfirmResult{}, unavailable(err)
	}
	if intent.Metadata[MetaAccountID] != accountID {
		r.log.Warn(ctx, "payment intent belongs to another account", "account_id", accountID, "intent_id", intentID)
		return ConfirmResult{}, apperr.New(apperr.ErrNotFound, apperr.CodeNotFound, "Payment not found.")
	}
	if intent.Status != IntentSucceeded {
		return ConfirmResult{}, apperr.New(apperr.ErrValidation, apperr.CodePaymentNotCompleted, "Payment not completed.").
			With("status", intent.Status)
	}

	plan, err := r.planFromMetadata(ctx, intent)
	if err != nil {
		return ConfirmResult{}, err
	}
	return r.activate(ctx, accountID, plan, intent)
}

// HandleWebhook verifies and applies a provider event. Events that cannot
// be tied to a known account and plan are logged and acknowledged.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (Event, error) {
	if r.provider == nil {
		return Event{}, unavailable(nil)
	}
	evt, err := r.provider.ParseWebhook(payload, signature)
	if err != nil {
		return Event{}, apperr.Wrap(apperr.ErrValidation, apperr.CodeInvalidSignature, "Webhook signature verification failed.", err)
	}
	log := r.log.With("event_id", evt.ID, "event_type", evt.Type)

	switch evt.Type {
	case EventPaymentSucceeded:
		if evt.Intent == nil {
			return evt, nil
		}
		accountID := evt.Intent.Metadata[MetaAccountID]
		plan, err := r.planFromMetadata(ctx, *evt.Intent)
		if accountID == "" || err != nil {
			log.Warn(ctx, "payment event without usable metadata", "intent_id", evt.Intent.ID)
			return evt, nil
		}
		if _, err := r.store.FindAccountByID(ctx, accountID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Warn(ctx, "payment event for unknown account", "account_id", accountID)
				return evt, nil
			}
			return evt, err
		}
		if _, err := r.activate(ctx, accountID, plan, *evt.Intent); err != nil {
			return evt, err
		}
	case EventPaymentFailed:
		if evt.Intent == nil {
			return evt, nil
		}
		if err := r.recordFailure(ctx, *evt.Intent); err != nil {
			return evt, err
		}
	default:
		log.Debug(ctx, "ignoring webhook event")
	}
	return evt, nil
}

func (r *Reconciler) activePlan(ctx context.Context, planID int64) (models.Plan, error) {
	if planID <= 0 {
		return models.Plan{}, planNotFound()
	}
	plan, err := r.store.FindPlan(ctx, planID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !plan.IsActive) {
		return models.Plan{}, planNotFound()
	}
	return plan, err
}

func (r *Reconciler) planFromMetadata(ctx context.Context, intent Intent) (models.Plan, error) {
	id, err := strconv.ParseInt(intent.Metadata[MetaPlanID], 10, 64)
	if err != nil {
		return models.Plan{}, planNotFound()
	}
	plan, err := r.store.FindPlan(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Plan{}, planNotFound()
	}
	return plan, err
}

// activate records the payment and moves the account onto plan in one
// store call. A succeeded payment already recorded for the same intent
// leaves the subscription untouched, so webhook retries and a client
// confirm do not stack billing periods. An earlier failure on the intent
// does not block a later success.
func (r *Reconciler) activate(ctx context.Context, accountID string, plan models.Plan, intent Intent) (ConfirmResult, error) {
	payment := models.Payment{
		AccountID:         accountID,
		PlanID:            plan.ID,
		PlanName:          plan.Name,
		AmountCents:       intent.Amount,
		Currency:          strings.ToLower(intent.Currency),
		Status:            models.PaymentSucceeded,
		ProviderPaymentID: intent.ID,
	}
	end := r.now().Add(BillingPeriod)
	sub, err := r.store.ApplyPayment(ctx, payment, models.Subscription{
		AccountID:              accountID,
		Plan:                   strings.ToLower(plan.Name),
		Status:                 models.SubscriptionActive,
		PeriodEnd:              &end,
		ProviderSubscriptionID: intent.ID,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		sub, err := r.GetUserSubscription(ctx, accountID)
		if err != nil {
			return ConfirmResult{}, err
		}
		r.log.Info(ctx, "payment already applied", "account_id", accountID, "intent_id", intent.ID)
		return ConfirmResult{Payment: payment, Subscription: sub}, nil
	}
	if err != nil {
		return ConfirmResult{}, err
	}
	r.log.Info(ctx, "subscription activated", "account_id", accountID, "plan", sub.Plan, "intent_id", intent.ID)
	return ConfirmResult{Payment: payment, Subscription: sub}, nil
}

func (r *Reconciler) recordFailure(ctx context.Context, intent Intent) error {
	accountID := intent.Metadata[MetaAccountID]
	if accountID == "" {
		return nil
	}
	if _, err := r.store.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	planID, _ := strconv.ParseInt(intent.Metadata[MetaPlanID], 10, 64)
	err := r.store.RecordPayment(ctx, models.Payment{
		AccountID:         accountID,
		PlanID:            planID,
		PlanName:          intent.Metadata[MetaPlanName],
		AmountCents:       intent.Amount,
		Currency:          strings.ToLower(intent.Currency),
		Status:            models.PaymentFailed,
		ProviderPaymentID: intent.ID,
	})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		r.log.Error(ctx, "record failed payment", "error", redact.Error(err))
	}
	return err
}
