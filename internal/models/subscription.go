package models

import "time"

const (
	PlanFree = "free"

	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"

	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Subscription is an account's current plan. PeriodEnd is nil for plans
// that never lapse (the free plan).
type Subscription struct {
	AccountID              string     `json:"accountId"`
	Plan                   string     `json:"plan"`
	Status                 string     `json:"status"`
	PeriodEnd              *time.Time `json:"currentPeriodEnd,omitempty"`
	ProviderSubscriptionID string     `json:"providerSubscriptionId,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// FreeSubscription is the subscription every new account starts with.
func FreeSubscription(accountID string, now time.Time) Subscription {
	return Subscription{
		AccountID: accountID,
		Plan:      PlanFree,
		Status:    SubscriptionActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ActiveAt reports whether the subscription grants access at t.
func (s Subscription) ActiveAt(t time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.PeriodEnd == nil || t.Before(*s.PeriodEnd)
}

// Plan is a purchasable pricing plan. Price is in minor units (cents).
type Plan struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	Period      string    `json:"period"`
	Features    []string  `json:"features"`
	IsPopular   bool      `json:"isPopular"`
	IsActive    bool      `json:"isActive"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Payment is one recorded provider payment, successful or not.
type Payment struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"accountId"`
	PlanID            int64     `json:"planId"`
	PlanName          string    `json:"planName"`
	AmountCents       int64     `json:"amountCents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	ProviderPaymentID string    `json:"providerPaymentId"`
	CreatedAt         time.Time `json:"createdAt"`
}
