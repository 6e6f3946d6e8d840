// Package apperr holds the error taxonomy shared by services and handlers.
// Services return *Error values (or bare kinds); handlers map them to HTTP
// statuses and client-facing codes. Callers match kinds with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountLocked      = errors.New("account locked")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("already exists")
	ErrPaymentRequired    = errors.New("payment required")
	ErrExternalService    = errors.New("external service error")
)

// Client-facing codes.
const (
	CodeMissingCredentials      = "auth/missing-credentials"
	CodeInvalidCredentials      = "auth/invalid-credentials"
	CodeInsufficientPermissions = "auth/insufficient-permissions"
	CodeUseAdminLogin           = "auth/use-admin-login"
	CodeAccountLocked           = "auth/account-locked"
	CodeAccountDisabled         = "auth/account-disabled"
	CodeAccountExists           = "auth/account-exists"
	CodeUnauthenticated         = "auth/unauthenticated"
	CodeInvalidToken            = "auth/invalid-token"
	CodeTokenExpired            = "auth/token-expired"
	CodeValidation              = "request/invalid"
	CodePlanNotFound            = "billing/plan-not-found"
	CodePlanExists              = "billing/plan-exists"
	CodeInvalidSignature        = "billing/invalid-signature"
	CodePaymentNotCompleted     = "billing/payment-not-completed"
	CodePaymentsUnavailable     = "billing/unavailable"
	CodeUpgradeRequired         = "subscription/upgrade-required"
	CodePageNotFound            = "content/not-found"
	CodeContentUnavailable      = "content/unavailable"
	CodeNotFound                = "resource/not-found"
	CodeInternal                = "server/internal"
)

// Error is a typed failure with a client-facing code and message.
type Error struct {
	Kind    error
	Code    string
	Message string
	Details map[string]any
	cause   error
}

func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches an underlying cause which is kept for logging only.
func Wrap(kind error, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

// With returns a copy of e carrying an extra detail field.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAccountLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
