package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
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

type stubCompanyStore struct {
	companies   map[int64]*models.Company
	following   map[int64]map[string]bool
	added       []models.CompanyMember
	memberships []models.CompanyMember
}

func (s *stubCompanyStore) GetByID(_ context.Context, _ authz.Scope, id int64) (*models.Company, error) {
	company, ok := s.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return company, nil
}

func (s *stubCompanyStore) List(_ context.Context, _ authz.Scope) ([]models.Company, error) {
	var companies []models.Company
	for _, c := range s.companies {
		companies = append(companies, *c)
	}
	return companies, nil
}

func (s *stubCompanyStore) Create(_ context.Context, _ *models.Company) error { return nil }
func (s *stubCompanyStore) Update(_ context.Context, _ *models.Company) error { return nil }
func (s *stubCompanyStore) Delete(_ context.Context, _ int64) error           { return nil }

func (s *stubCompanyStore) Members(_ context.Context, _ int64) ([]models.CompanyMember, error) {
	return s.memberships, nil
}

func (s *stubCompanyStore) MembershipsForUser(_ context.Context, _ string) ([]models.CompanyMember, error) {
	return s.memberships, nil
}

func (s *stubCompanyStore) AddMember(_ context.Context, member *models.CompanyMember) error {
	s.added = append(s.added, *member)
	return nil
}

func (s *stubCompanyStore) RemoveMember(_ context.Context, _ string, _ int64) error { return nil }

func (s *stubCompanyStore) SetMemberRfid(_ context.Context, _ *models.CompanyMember) error {
	return nil
}

func (s *stubCompanyStore) ToggleFollow(_ context.Context, userID string, companyID int64) (bool, error) {
	if s.following == nil {
		s.following = map[int64]map[string]bool{}
	}
	followers := s.following[companyID]
	if followers == nil {
		followers = map[string]bool{}
		s.following[companyID] = followers
	}
	if followers[userID] {
		delete(followers, userID)
		return false, nil
	}
	followers[userID] = true
	return true, nil
}

func newCompanyFixture() (*CompanyHandlers, *stubCompanyStore) {
	store := &stubCompanyStore{companies: map[int64]*models.Company{
		7: {ID: 7, Name: "Acme", IC: "12345678"},
	}}
	return NewCompanyHandlers(store, nil, zap.NewNop()), store
}

func companyRequest(method, target, companyID string, user *models.User, scope authz.Scope, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("companyID", companyID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithUser(ctx, user, scope)
	return req.WithContext(ctx)
}

func TestFollowToggles(t *testing.T) {
	handlers, store := newCompanyFixture()
	user := &models.User{ID: "u1", Role: models.RoleUser}
	scope := authz.ForUser(user, []models.CompanyMember{{CompanyID: 7, Role: models.MemberRoleEmployee}})

	recorder := httptest.NewRecorder()
	handlers.Follow(recorder, companyRequest(http.MethodPost, "/api/companies/7/follow", "7", user, scope, ""))
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["following"])
	assert.True(t, store.following[7]["u1"])

	// The same endpoint unfollows again.
	recorder = httptest.NewRecorder()
	handlers.Follow(recorder, companyRequest(http.MethodPost, "/api/companies/7/follow", "7", user, scope, ""))
	require.Equal(t, http.StatusOK, recorder.Code)
	body = decodeBody(t, recorder)
	assert.Equal(t, false, body["following"])
	assert.False(t, store.following[7]["u1"])
}

func TestFollowUnknownCompany(t *testing.T) {
	handlers, store := newCompanyFixture()
	user := &models.User{ID: "u1", Role: models.RoleAdmin}
	scope := authz.ForUser(user, nil)

	recorder := httptest.NewRecorder()
	handlers.Follow(recorder, companyRequest(http.MethodPost, "/api/companies/404/follow", "404", user, scope, ""))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Empty(t, store.following)
}

func TestFollowInvalidCompanyID(t *testing.T) {
	handlers, _ := newCompanyFixture()
	user := &models.User{ID: "u1", Role: models.RoleAdmin}
	scope := authz.ForUser(user, nil)

	recorder := httptest.NewRecorder()
	handlers.Follow(recorder, companyRequest(http.MethodPost, "/api/companies/x/follow", "x", user, scope, ""))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAddMemberCarriesRoleOnly(t *testing.T) {
	handlers, store := newCompanyFixture()
	user := &models.User{ID: "admin", Role: models.RoleAdmin}
	scope := authz.ForUser(user, nil)

	recorder := httptest.NewRecorder()
	handlers.AddMember(recorder, companyRequest(http.MethodPost, "/api/companies/7/members", "7", user, scope,
		`{"user_id":"u2","role":"MANAGER"}`))
	require.Equal(t, http.StatusCreated, recorder.Code)

	require.Len(t, store.added, 1)
	member := store.added[0]
	assert.Equal(t, "u2", member.UserID)
	assert.Equal(t, models.MemberRoleManager, member.Role)
	// A role change must not carry RFID data into the membership upsert.
	assert.Nil(t, member.RfidTag)
	assert.Nil(t, member.RfidValidTill)
}
