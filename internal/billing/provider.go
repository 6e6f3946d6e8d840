// Package billing keeps local subscription state in step with the payment
// provider: payment intents, confirmations and provider webhooks.
package billing

import "context"

// Intent is the provider-neutral view of a payment intent.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	CustomerID   string
	Metadata     map[string]string
}

const IntentSucceeded = "succeeded"

// Metadata keys stamped on every intent.
const (
	MetaAccountID = "accountId"
	MetaPlanID    = "planId"
	MetaPlanName  = "planName"
)

type IntentRequest struct {
	Amount     int64
	Currency   string
	CustomerID string
	Metadata   map[string]string
}

// Event is a verified provider webhook event.
type Event struct {
	ID     string
	Type   string
	Intent *Intent
}

const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// PaymentProvider is the slice of the payment provider the service uses.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (Intent, error)
	// ParseWebhook verifies the signature header and decodes the event.
	ParseWebhook(payload []byte, signature string) (Event, error)
}
