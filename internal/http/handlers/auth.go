package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/access-web-be/internal/auth"
	"github.com/hongminglow/access-web-be/internal/http/respond"
	"github.com/hongminglow/access-web-be/internal/logging"
	"github.com/hongminglow/access-web-be/internal/middleware"
	"github.com/hongminglow/access-web-be/internal/models/dto"
)

// sessionCookieMaxAge is seven days in seconds.
const sessionCookieMaxAge = 7 * 24 * 60 * 60

// AuthHandler owns the account and session endpoints.
type AuthHandler struct {
	verifier     *auth.Verifier
	log          logging.Logger
	secureCookie bool
}

// NewAuthHandler constructs the handler. secureCookie marks the session
// cookie Secure and should be on in production.
func NewAuthHandler(verifier *auth.Verifier, log logging.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{verifier: verifier, log: log, secureCookie: secureCookie}
}

// Register attaches auth routes under /api/auth.
func (h *AuthHandler) Register(r chi.Router, sessions *middleware.Sessions) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)
		r.Group(func(r chi.Router) {
			r.Use(sessions.Require)
			r.Get("/me", h.handleMe)
			r.Post("/change-password", h.handleChangePassword)
		})
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	account, err := h.verifier.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Account created successfully.",
		"user":    account.Principal(),
	})
}

// isAdminLogin honours the explicit flag and, for older clients, a login
// submitted from the admin login page.
func isAdminLogin(r *http.Request, req dto.LoginRequest) bool {
	return req.IsAdminLogin || strings.Contains(r.Referer(), "/admin/login")
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	res, err := h.verifier.Login(r.Context(), auth.LoginInput{
		Identifier:  req.Identifier(),
		Password:    req.Password,
		AdminPortal: isAdminLogin(r, req),
	})
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}

	h.setSessionCookie(w, res.Tokens.AccessToken)
	respond.JSON(w, http.StatusOK, dto.LoginResponse{
		Success:      true,
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    res.Tokens.ExpiresIn,
		User:         res.Account.Principal(),
		Message:      "Login successful.",
	})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	res, err := h.verifier.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	h.setSessionCookie(w, res.Tokens.AccessToken)
	respond.JSON(w, http.StatusOK, dto.LoginResponse{
		Success:      true,
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		ExpiresIn:    res.Tokens.ExpiresIn,
		User:         res.Account.Principal(),
		Message:      "Session refreshed.",
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	respond.Message(w, http.StatusOK, "Logged out.")
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "user": p})
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	var req dto.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	if err := h.verifier.ChangePassword(r.Context(), p.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respond.Error(r.Context(), w, h.log, err)
		return
	}
	respond.Message(w, http.StatusOK, "Password updated.")
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
