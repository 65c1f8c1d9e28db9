package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chargehub/internal/forms"
	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/repository"
	"chargehub/internal/service"
)

// UserStore is the account persistence the handlers work against.
type UserStore interface {
	List(ctx context.Context) ([]models.User, map[string]models.Profile, error)
	Delete(ctx context.Context, id string) error
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// UserHandlers serves account administration, invitations and the signed-in
// user's own profile.
type UserHandlers struct {
	users       UserStore
	invitations *repository.InvitationRepository
	auth        *service.AuthService
	logger      *zap.Logger
}

// NewUserHandlers builds handlers.
func NewUserHandlers(
	users UserStore,
	invitations *repository.InvitationRepository,
	auth *service.AuthService,
	logger *zap.Logger,
) *UserHandlers {
	return &UserHandlers{users: users, invitations: invitations, auth: auth, logger: logger}
}

type userView struct {
	models.User
	Profile *models.Profile `json:"profile"`
}

// List handles GET /api/users and returns every account alongside the
// pending invitations, which the management screen shows in one table.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	users, profiles, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("listing users failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]userView, 0, len(users))
	for _, user := range users {
		view := userView{User: user}
		if profile, ok := profiles[user.ID]; ok {
			p := profile
			view.Profile = &p
		}
		views = append(views, view)
	}

	pending, err := h.invitations.ListPending(r.Context())
	if err != nil {
		h.logger.Error("listing invitations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":       views,
		"invitations": pending,
	})
}

// Delete handles DELETE /api/users/{userID}. An admin cannot delete their own
// account.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "userID")
	if current != nil && current.ID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("deleting user failed", zap.String("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Invite handles POST /api/invitations.
func (h *UserHandlers) Invite(w http.ResponseWriter, r *http.Request) {
	var form forms.InviteForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if errs := form.Validate(); !errs.Valid() {
		writeFormErrors(w, errs)
		return
	}

	inv, err := h.auth.Invite(r.Context(), form)
	if err != nil {
		if errors.Is(err, service.ErrEmailInUse) {
			writeError(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		h.logger.Error("inviting user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// ResendInvitation handles POST /api/invitations/{invitationID}/resend.
func (h *UserHandlers) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	err := h.auth.ResendInvitation(r.Context(), chi.URLParam(r, "invitationID"))
	if err != nil {
		if errors.Is(err, service.ErrInvitationInvalid) {
			writeError(w, http.StatusNotFound, "invitation not found")
			return
		}
		h.logger.Error("resending invitation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CancelInvitation handles DELETE /api/invitations/{invitationID}.
func (h *UserHandlers) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	err := h.auth.CancelInvitation(r.Context(), chi.URLParam(r, "invitationID"))
	if err != nil {
		if errors.Is(err, service.ErrInvitationInvalid) {
			writeError(w, http.StatusNotFound, "invitation not found")
			return
		}
		h.logger.Error("cancelling invitation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Profile handles GET /api/profile.
func (h *UserHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	view := userView{User: *user}
	profile, err := h.users.GetProfile(r.Context(), user.ID)
	switch {
	case err == nil:
		view.Profile = profile
	case !errors.Is(err, repository.ErrNotFound):
		h.logger.Error("loading profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type profilePayload struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UpdateProfile handles PUT /api/profile.
func (h *UserHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var payload profilePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	profile := &models.Profile{
		UserID:    user.ID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}
	if err := h.users.UpsertProfile(r.Context(), profile); err != nil {
		h.logger.Error("updating profile failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type changePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ChangePassword handles POST /api/profile/password.
func (h *UserHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	var payload changePasswordPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if payload.NewPassword != payload.ConfirmPassword {
		writeFormErrors(w, forms.Errors{"confirm_password": "passwords do not match"})
		return
	}

	err := h.auth.ChangePassword(r.Context(), user.ID, payload.CurrentPassword, payload.NewPassword)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeFormErrors(w, forms.Errors{"current_password": "current password is incorrect"})
	case errors.Is(err, service.ErrWeakPassword):
		writeFormErrors(w, forms.Errors{"new_password": "password must have at least 8 characters including a lowercase letter, an uppercase letter and a digit"})
	default:
		h.logger.Error("changing password failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
