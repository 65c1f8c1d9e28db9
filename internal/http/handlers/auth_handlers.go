package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargehub/internal/forms"
	"chargehub/internal/http/middleware"
	"chargehub/internal/service"
)

// AuthHandlers serves login, logout, invited registration and password reset.
type AuthHandlers struct {
	auth       *service.AuthService
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthHandlers builds handlers.
func NewAuthHandlers(auth *service.AuthService, sessionTTL time.Duration, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{auth: auth, sessionTTL: sessionTTL, logger: logger}
}

// Login handles POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var form forms.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	token, user, err := h.auth.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
		}
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RequestReset handles POST /api/auth/reset. The response does not reveal
// whether the address belongs to an account.
func (h *AuthHandlers) RequestReset(w http.ResponseWriter, r *http.Request) {
	var form forms.ResetRequestForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), form.Email); err != nil {
		h.logger.Error("password reset request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type resetConfirmPayload struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ConfirmReset handles POST /api/auth/reset/{token}.
func (h *AuthHandlers) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var payload resetConfirmPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if payload.Password != payload.ConfirmPassword {
		writeFormErrors(w, forms.Errors{"confirm_password": "passwords do not match"})
		return
	}

	err := h.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), payload.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, service.ErrWeakPassword):
		writeFormErrors(w, forms.Errors{"password": "password must have at least 8 characters including a lowercase letter, an uppercase letter and a digit"})
	case errors.Is(err, service.ErrResetInvalid):
		writeError(w, http.StatusBadRequest, "the reset link is invalid or has expired")
	default:
		h.logger.Error("password reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// LookupInvitation handles GET /api/auth/register/{token} and returns the
// invitation the link redeems so the registration form can be prefilled.
func (h *AuthHandlers) LookupInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.auth.LookupInvitation(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, service.ErrInvitationInvalid) {
			writeError(w, http.StatusNotFound, "the invitation link is invalid or has expired")
			return
		}
		h.logger.Error("invitation lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Register handles POST /api/auth/register/{token}. A successful registration
// logs the new account in.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var form forms.RegisterForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	token, user, err := h.auth.Register(r.Context(), chi.URLParam(r, "token"), form)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvitationInvalid):
			writeError(w, http.StatusNotFound, "the invitation link is invalid or has expired")
		case errors.Is(err, service.ErrEmailInUse):
			writeError(w, http.StatusConflict, "an account with this email already exists")
		default:
			h.logger.Error("registration failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
