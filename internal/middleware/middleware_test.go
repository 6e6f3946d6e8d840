package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/access-web-be/internal/access"
	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/models"
	"github.com/hongminglow/access-web-be/internal/storage/memory"
)

type sessionFixture struct {
	store    *memory.Store
	tokens   *auth.TokenManager
	sessions *Sessions
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", "access-web", time.Hour, 24*time.Hour)
	return &sessionFixture{store: store, tokens: tokens, sessions: NewSessions(tokens, store, logging.Discard())}
}

func (f *sessionFixture) account(t *testing.T, email, role string) (models.Account, string) {
	t.Helper()
	acc, err := f.store.CreateAccount(context.Background(), models.Account{Email: email, Role: role},
		models.FreeSubscription("", time.Now()))
	require.NoError(t, err)
	pair, err := f.tokens.Issue(acc.ID)
	require.NoError(t, err)
	return acc, pair.AccessToken
}

func principalEcho(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(p)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error.Code
}

func TestSessions_Require(t *testing.T) {
	f := newSessionFixture(t)
	acc, token := f.account(t, "user@x.com", models.RoleUser)
	h := f.sessions.Require(http.HandlerFunc(principalEcho))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), acc.ID)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperr.CodeUnauthenticated, errorCode(t, rec))
	})

	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperr.CodeInvalidToken, errorCode(t, rec))
	})
}

func TestSessions_ExpiredTokenHasDistinctCode(t *testing.T) {
	store := memory.New()
	tokens := auth.NewTokenManager("access-secret", "refresh-secret", "access-web", -time.Minute, time.Hour)
	pair, err := tokens.Issue("whoever")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	NewSessions(tokens, store, logging.Discard()).Require(http.HandlerFunc(principalEcho)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeTokenExpired, errorCode(t, rec))
}

func TestSessions_DeletedAndDisabledAccounts(t *testing.T) {
	f := newSessionFixture(t)
	acc, token := f.account(t, "user@x.com", models.RoleUser)
	h := f.sessions.Require(http.HandlerFunc(principalEcho))

	require.NoError(t, f.store.SetDisabled(context.Background(), acc.ID, true))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.CodeAccountDisabled, errorCode(t, rec))

	pair, err := f.tokens.Issue("00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeUnauthenticated, errorCode(t, rec))
}

func TestSessions_Optional(t *testing.T) {
	f := newSessionFixture(t)
	acc, token := f.account(t, "user@x.com", models.RoleUser)
	h := f.sessions.Optional(http.HandlerFunc(principalEcho))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), acc.ID)
}

func TestRequireRole(t *testing.T) {
	f := newSessionFixture(t)
	_, userToken := f.account(t, "user@x.com", models.RoleUser)
	_, adminToken := f.account(t, "admin@x.com", models.RoleAdmin)
	h := f.sessions.Require(RequireRole(models.RoleAdmin, logging.Discard())(http.HandlerFunc(principalEcho)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.CodeInsufficientPermissions, errorCode(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type staticSubs map[string]models.Subscription

func (s staticSubs) GetUserSubscription(_ context.Context, id string) (models.Subscription, error) {
	return s[id], nil
}

func TestRequireFeature(t *testing.T) {
	f := newSessionFixture(t)
	free, freeToken := f.account(t, "free@x.com", models.RoleUser)
	pro, proToken := f.account(t, "pro@x.com", models.RoleUser)
	end := time.Now().Add(time.Hour)
	subs := staticSubs{
		free.ID: models.FreeSubscription(free.ID, time.Now()),
		pro.ID:  {AccountID: pro.ID, Plan: "professional", Status: models.SubscriptionActive, PeriodEnd: &end},
	}
	h := f.sessions.Require(RequireFeature(access.FeatureWCAGAudit, subs, logging.Discard())(http.HandlerFunc(principalEcho)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+freeToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, apperr.CodeUpgradeRequired, errorCode(t, rec))
	assert.Contains(t, rec.Body.String(), `"requiredPlan":"professional"`)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+proToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogging_AssignsRequestID(t *testing.T) {
	var logs bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	var seen string
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, logs.String(), "status=418")
	assert.Contains(t, logs.String(), "request_id="+seen)

	const inbound = "6f1c1f0e-4a43-4a8f-9a53-1f2d3c4b5a69"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, inbound, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"https://app.example.com"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://APP.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://APP.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wildcard := CORS([]string{"*"})(next)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://any.example.com")
	rec = httptest.NewRecorder()
	wildcard.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"), "credentials are never paired with a wildcard")
}
