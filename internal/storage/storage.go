package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/access-web-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// AccountStore captures account persistence.
type AccountStore interface {
	// CreateAccount inserts the account together with its initial
	// subscription so that no account exists without one.
	CreateAccount(ctx context.Context, account models.Account, sub models.Subscription) (models.Account, error)
	FindAccountByID(ctx context.Context, id string) (models.Account, error)
	// FindAccountByEmail matches the email exactly (case-sensitive).
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	SetPaymentCustomerID(ctx context.Context, id, customerID string) error
	SetRole(ctx context.Context, id, role string, canAccessUserFeatures bool) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
}

// SubscriptionStore captures subscription and payment persistence.
type SubscriptionStore interface {
	FindSubscription(ctx context.Context, accountID string) (models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error)
	// RecordPayment is idempotent on ProviderPaymentID; a duplicate returns
	// ErrAlreadyExists and leaves the stored row untouched.
	RecordPayment(ctx context.Context, payment models.Payment) error
	// ApplyPayment records a succeeded payment and writes sub in one unit.
	// A failed row with the same ProviderPaymentID is upgraded to succeeded.
	// If a succeeded row already exists it returns ErrAlreadyExists and
	// changes nothing.
	ApplyPayment(ctx context.Context, payment models.Payment, sub models.Subscription) (models.Subscription, error)
	ListPayments(ctx context.Context, accountID string) ([]models.Payment, error)
}

// PlanStore captures pricing plan persistence.
type PlanStore interface {
	ListPlans(ctx context.Context, includeInactive bool) ([]models.Plan, error)
	FindPlan(ctx context.Context, id int64) (models.Plan, error)
	CreatePlan(ctx context.Context, plan models.Plan) (models.Plan, error)
}

// Store is everything the service persists.
type Store interface {
	AccountStore
	SubscriptionStore
	PlanStore
	Close()
}
