// Package middleware resolves the browser session cookie into the request's
// user and authorization scope.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"chargehub/internal/authz"
	"chargehub/internal/models"
	"chargehub/internal/sessions"
)

// SessionCookieName is the browser session cookie.
const SessionCookieName = "chargehub_session"

type contextKey string

const (
	userKey  contextKey = "user"
	scopeKey contextKey = "scope"
)

// SessionResolver turns a session token into a user ID.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// UserLoader loads an account by ID.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// MembershipLoader loads a user's company memberships.
type MembershipLoader interface {
	MembershipsForUser(ctx context.Context, userID string) ([]models.CompanyMember, error)
}

// Auth resolves the session cookie, loads the account and computes the
// request scope once. Requests without a valid session get 401.
func Auth(store SessionResolver, users UserLoader, memberships MembershipLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				unauthorized(w)
				return
			}

			userID, err := store.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, sessions.ErrSessionNotFound) {
					unauthorized(w)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				unauthorized(w)
				return
			}

			member, err := memberships.MembershipsForUser(r.Context(), user.ID)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := WithUser(r.Context(), user, authz.ForUser(user, member))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose scope lacks the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := ScopeFromContext(r.Context())
		if !ok || !scope.CanManage() {
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a context carrying the authenticated user and their scope
// the way Auth installs them.
func WithUser(ctx context.Context, user *models.User, scope authz.Scope) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, scopeKey, scope)
}

// UserFromContext retrieves the authenticated user.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// ScopeFromContext retrieves the request's authorization scope.
func ScopeFromContext(ctx context.Context) (authz.Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(authz.Scope)
	return scope, ok
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}
