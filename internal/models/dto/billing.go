package dto

type CreatePaymentIntentRequest struct {
	PlanID int64 `json:"planId"`
}

// ConfirmPaymentRequest carries PlanID only for the legacy prefix shortcut;
// verified confirmations read the plan from the intent metadata.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	PlanID          int64  `json:"planId"`
}

// DisableAccountRequest defaults to disabling when Disabled is omitted.
type DisableAccountRequest struct {
	Disabled *bool `json:"disabled"`
}

// CreatePlanRequest creates an active plan unless IsActive is sent as false.
type CreatePlanRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"priceCents"`
	Currency    string   `json:"currency"`
	Period      string   `json:"period"`
	Features    []string `json:"features"`
	IsPopular   bool     `json:"isPopular"`
	IsActive    *bool    `json:"isActive"`
	SortOrder   int      `json:"sortOrder"`
}
