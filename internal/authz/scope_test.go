package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chargehub/internal/models"
)

func TestForUserAdmin(t *testing.T) {
	scope := ForUser(&models.User{ID: "u1", Role: models.RoleAdmin}, nil)
	assert.True(t, scope.Admin)
	assert.False(t, scope.Host)
	assert.True(t, scope.CanManage())
}

func TestForUserWithoutMemberships(t *testing.T) {
	scope := ForUser(&models.User{ID: "u1", Role: models.RoleUser}, nil)
	assert.False(t, scope.Admin)
	assert.False(t, scope.Host)
	assert.False(t, scope.CanManage())
}

func TestForUserHostOnly(t *testing.T) {
	scope := ForUser(&models.User{ID: "u1", Role: models.RoleUser}, []models.CompanyMember{
		{CompanyID: 1, Role: models.MemberRoleHost},
		{CompanyID: 2, Role: models.MemberRoleHost},
	})
	assert.True(t, scope.Host)
}

func TestForUserMixedRolesIsNotHost(t *testing.T) {
	scope := ForUser(&models.User{ID: "u1", Role: models.RoleUser}, []models.CompanyMember{
		{CompanyID: 1, Role: models.MemberRoleHost},
		{CompanyID: 2, Role: models.MemberRoleEmployee},
	})
	assert.False(t, scope.Host)
}

func TestForUserAdminMembershipsDoNotNarrow(t *testing.T) {
	scope := ForUser(&models.User{ID: "u1", Role: models.RoleAdmin}, []models.CompanyMember{
		{CompanyID: 1, Role: models.MemberRoleHost},
	})
	assert.True(t, scope.Admin)
	assert.False(t, scope.Host)
}
