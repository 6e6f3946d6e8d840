package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hongminglow/access-web-be/internal/access"
	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/storage"
)

// SessionCookie carries the access token for browser clients.
const SessionCookie = "accessToken"

// SubscriptionSource resolves an account's current subscription.
type SubscriptionSource interface {
	GetUserSubscription(ctx context.Context, accountID string) (models.Subscription, error)
}

// Sessions authenticates requests from a bearer header or the session
// cookie and attaches the caller's principal to the request context.
type Sessions struct {
	tokens   *auth.TokenManager
	accounts storage.AccountStore
	log      logging.Logger
}

func NewSessions(tokens *auth.TokenManager, accounts storage.AccountStore, log logging.Logger) *Sessions {
	return &Sessions{tokens: tokens, accounts: accounts, log: log}
}

// Require rejects requests without a valid session.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authenticate(r)
		if err != nil {
			respond.Error(r.Context(), w, s.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// Optional attaches the principal when a valid session is present and
// otherwise passes the request through untouched.
func (s *Sessions) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, err := s.authenticate(r); err == nil {
			r = r.WithContext(auth.WithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Sessions) authenticate(r *http.Request) (models.Principal, error) {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(SessionCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return models.Principal{}, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Authentication required.")
	}

	accountID, err := s.tokens.ParseAccess(token)
	if err != nil {
		return models.Principal{}, err
	}

	account, err := s.accounts.FindAccountByID(r.Context(), accountID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Principal{}, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Authentication required.")
	}
	if err != nil {
		return models.Principal{}, err
	}
	if account.Disabled {
		return models.Principal{}, apperr.New(apperr.ErrForbidden, apperr.CodeAccountDisabled, "This account has been disabled.")
	}
	return account.Principal(), nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireRole must run after Sessions.Require.
func RequireRole(role string, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				respond.Error(r.Context(), w, log, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Authentication required."))
				return
			}
			if !access.HasRole(p, role) {
				log.Warn(r.Context(), "role check failed", "account_id", p.ID, "required_role", role)
				respond.Error(r.Context(), w, log, access.DenyInsufficientPermissions.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireFeature must run after Sessions.Require. Callers whose plan does
// not include feature get 402 with the plan they would need.
func RequireFeature(feature string, subs SubscriptionSource, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				respond.Error(r.Context(), w, log, apperr.New(apperr.ErrUnauthenticated, apperr.CodeUnauthenticated, "Authentication required."))
				return
			}
			sub, err := subs.GetUserSubscription(r.Context(), p.ID)
			if err != nil {
				respond.Error(r.Context(), w, log, err)
				return
			}
			if !access.Entitled(p, sub, feature, time.Now()) {
				respond.Error(r.Context(), w, log, UpgradeRequired(feature, sub.Plan))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UpgradeRequired is the 402 returned when a plan lacks a feature.
func UpgradeRequired(feature, currentPlan string) error {
	return apperr.New(apperr.ErrPaymentRequired, apperr.CodeUpgradeRequired, "Your plan does not include this feature.").
		With("feature", feature).
		With("requiredPlan", access.RequiredPlan(feature)).
		With("currentPlan", currentPlan)
}
