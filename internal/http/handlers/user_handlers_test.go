package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chargehub/internal/authz"
	"chargehub/internal/http/middleware"
	"chargehub/internal/models"
	"chargehub/internal/repository"
)

type stubUserStore struct {
	users   map[string]*models.User
	deleted []string
}

func (s *stubUserStore) List(_ context.Context) ([]models.User, map[string]models.Profile, error) {
	var users []models.User
	for _, user := range s.users {
		users = append(users, *user)
	}
	return users, map[string]models.Profile{}, nil
}

func (s *stubUserStore) Delete(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubUserStore) GetProfile(_ context.Context, _ string) (*models.Profile, error) {
	return nil, repository.ErrNotFound
}

func (s *stubUserStore) UpsertProfile(_ context.Context, _ *models.Profile) error { return nil }

func newUserFixture() (*UserHandlers, *stubUserStore) {
	store := &stubUserStore{users: map[string]*models.User{
		"admin": {ID: "admin", Email: "admin@example.com", Role: models.RoleAdmin},
		"u2":    {ID: "u2", Email: "user@example.com", Role: models.RoleUser},
	}}
	return NewUserHandlers(store, nil, nil, zap.NewNop()), store
}

func deleteUserRequest(current *models.User, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/api/users/"+userID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("userID", userID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithUser(ctx, current, authz.ForUser(current, nil))
	return req.WithContext(ctx)
}

func TestDeleteUser(t *testing.T) {
	handlers, store := newUserFixture()
	admin := store.users["admin"]

	recorder := httptest.NewRecorder()
	handlers.Delete(recorder, deleteUserRequest(admin, "u2"))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"u2"}, store.deleted)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	handlers, store := newUserFixture()
	admin := store.users["admin"]

	recorder := httptest.NewRecorder()
	handlers.Delete(recorder, deleteUserRequest(admin, "admin"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, store.deleted)
}

func TestDeleteUnknownUserNotFound(t *testing.T) {
	handlers, _ := newUserFixture()
	admin := &models.User{ID: "admin", Role: models.RoleAdmin}

	recorder := httptest.NewRecorder()
	handlers.Delete(recorder, deleteUserRequest(admin, "ghost"))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, "user not found", body["error"])
}
