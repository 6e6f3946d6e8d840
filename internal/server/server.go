package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/access"
	"github.com/hongminglow/access-web-be/internal/apperr"
	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/billing"
	"github.com/hongminglow/access-web-be/internal/config"
	"github.com/hongminglow/access-web-be/internal/content"
	"github.com/hongminglow/access-web-be/internal/http/handlers"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/middleware"
	"github.com/hongminglow/access-web-be/internal/storage"
)

// Deps are the services the HTTP layer is built from.
type Deps struct {
	Store    storage.Store
	Tokens   *auth.TokenManager
	Verifier *auth.Verifier
	Billing  *billing.Reconciler
	Content  *content.Resolver
	Log      logging.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// NewRouter builds the full route table. Payment routes are mounted only
// when a provider key is configured, the webhook only with a signing secret.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(deps.Log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respond.Error(req.Context(), w, deps.Log, apperr.New(apperr.ErrNotFound, apperr.CodeNotFound, "Route not found."))
	})

	sessions := middleware.NewSessions(deps.Tokens, deps.Store, deps.Log)

	handlers.NewHealthHandler(time.Now(), cfg.Env).Register(r)
	handlers.NewAuthHandler(deps.Verifier, deps.Log, cfg.IsProduction()).Register(r, sessions)
	handlers.NewBillingHandler(deps.Billing, deps.Log).Register(r, sessions, handlers.BillingRoutes{
		Payments: cfg.PaymentsEnabled(),
		Webhook:  cfg.PaymentsEnabled() && cfg.StripeWebhookSecret != "",
	})
	handlers.NewEntitlementsHandler(deps.Billing, deps.Log).Register(r, sessions)
	handlers.NewContentHandler(deps.Content, deps.Log, cfg.NotFoundRedirectMS).Register(r)
	handlers.NewRouteHandler(access.DefaultRoutePolicy()).Register(r, sessions)
	handlers.NewAdminHandler(deps.Billing, deps.Store, deps.Log).Register(r, sessions)

	return r
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
