package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chargehub/internal/forms"
	"chargehub/internal/models"
	"chargehub/internal/password"
	"chargehub/internal/repository"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	created []models.User
	profile *models.Profile
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.created = append(f.created, *user)
	f.byEmail[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id, hash string) error {
	for _, user := range f.byEmail {
		if user.ID == id {
			user.PasswordHash = hash
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (f *fakeUserStore) UpsertProfile(_ context.Context, profile *models.Profile) error {
	f.profile = profile
	return nil
}

type fakeMembershipStore struct {
	added []models.CompanyMember
}

func (f *fakeMembershipStore) AddMember(_ context.Context, member *models.CompanyMember) error {
	f.added = append(f.added, *member)
	return nil
}

type fakeInvitationStore struct {
	invitations map[string]*models.RegisterInvitation
	resets      map[string]*models.PasswordReset
	redeemed    []string
}

func (f *fakeInvitationStore) Create(_ context.Context, inv *models.RegisterInvitation) error {
	copied := *inv
	f.invitations[inv.ID] = &copied
	return nil
}

func (f *fakeInvitationStore) GetByID(_ context.Context, id string) (*models.RegisterInvitation, error) {
	inv, ok := f.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return inv, nil
}

func (f *fakeInvitationStore) MarkRedeemed(_ context.Context, id, userID string) error {
	inv, ok := f.invitations[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.UserID = &userID
	f.redeemed = append(f.redeemed, id)
	return nil
}

func (f *fakeInvitationStore) Delete(_ context.Context, id string) error {
	if _, ok := f.invitations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.invitations, id)
	return nil
}

func (f *fakeInvitationStore) CreateReset(_ context.Context, reset *models.PasswordReset) error {
	copied := *reset
	f.resets[reset.TokenHash] = &copied
	return nil
}

func (f *fakeInvitationStore) ConsumeReset(_ context.Context, tokenHash string) (*models.PasswordReset, error) {
	reset, ok := f.resets[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.resets, tokenHash)
	return reset, nil
}

type fakeBrowserSessions struct {
	nextToken string
	destroyed []string
	dropped   []string
}

func (f *fakeBrowserSessions) Create(_ context.Context, _ string) (string, error) {
	return f.nextToken, nil
}

func (f *fakeBrowserSessions) Destroy(_ context.Context, token string) error {
	f.destroyed = append(f.destroyed, token)
	return nil
}

func (f *fakeBrowserSessions) DestroyAllForUser(_ context.Context, userID string) error {
	f.dropped = append(f.dropped, userID)
	return nil
}

type fakeMailer struct {
	invitations map[string]string
	resets      map[string]string
}

func (f *fakeMailer) SendInvitation(_ context.Context, to, link string) error {
	f.invitations[to] = link
	return nil
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	f.resets[to] = link
	return nil
}

type authFixture struct {
	svc         *AuthService
	users       *fakeUserStore
	memberships *fakeMembershipStore
	invitations *fakeInvitationStore
	sessions    *fakeBrowserSessions
	mailer      *fakeMailer
	hasher      *password.BcryptHasher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:       &fakeUserStore{byEmail: map[string]*models.User{}},
		memberships: &fakeMembershipStore{},
		invitations: &fakeInvitationStore{
			invitations: map[string]*models.RegisterInvitation{},
			resets:      map[string]*models.PasswordReset{},
		},
		sessions: &fakeBrowserSessions{nextToken: "session-token"},
		mailer:   &fakeMailer{invitations: map[string]string{}, resets: map[string]string{}},
		hasher:   password.NewBcryptHasher(bcrypt.MinCost),
	}
	f.svc = NewAuthService(
		f.users, f.memberships, f.invitations, f.sessions,
		f.hasher, NewTokenService("test-secret"), f.mailer,
		"https://dashboard.example.com/", zap.NewNop())
	return f
}

func (f *authFixture) seedUser(t *testing.T, email, plaintext string) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(plaintext)
	require.NoError(t, err)
	user := &models.User{ID: "user-" + email, Email: email, PasswordHash: hash, Role: models.RoleUser}
	f.users.byEmail[email] = user
	return user
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "user@example.com", "Sup3rSecret")

	token, user, err := f.svc.Login(context.Background(), " User@Example.COM ", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, "session-token", token)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "user@example.com", "Sup3rSecret")

	_, _, err := f.svc.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(context.Background(), "unknown@example.com", "Sup3rSecret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestInviteMailsSignedLink(t *testing.T) {
	f := newAuthFixture(t)

	inv, err := f.svc.Invite(context.Background(), forms.InviteForm{Email: "new@example.com"})
	require.NoError(t, err)
	assert.Len(t, inv.ID, 40)
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), inv.ExpiresAt, time.Minute)

	link := f.mailer.invitations["new@example.com"]
	require.NotEmpty(t, link)
	assert.True(t, strings.HasPrefix(link, "https://dashboard.example.com/verify/"))
}

func TestInviteRejectsRegisteredEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "user@example.com", "Sup3rSecret")

	_, err := f.svc.Invite(context.Background(), forms.InviteForm{Email: "user@example.com"})
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestRegisterRedeemsInvitation(t *testing.T) {
	f := newAuthFixture(t)

	companyID := int64(7)
	role := models.MemberRoleManager
	inv, err := f.svc.Invite(context.Background(), forms.InviteForm{
		Email:     "new@example.com",
		CompanyID: &companyID,
		Role:      &role,
	})
	require.NoError(t, err)

	link := strings.TrimPrefix(f.mailer.invitations["new@example.com"], "https://dashboard.example.com/verify/")
	token, user, err := f.svc.Register(context.Background(), link, forms.RegisterForm{
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "session-token", token)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)

	require.Len(t, f.memberships.added, 1)
	assert.Equal(t, companyID, f.memberships.added[0].CompanyID)
	assert.Equal(t, models.MemberRoleManager, f.memberships.added[0].Role)
	assert.Equal(t, []string{inv.ID}, f.invitations.redeemed)

	// A redeemed link cannot be used again.
	_, _, err = f.svc.Register(context.Background(), link, forms.RegisterForm{
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
	})
	assert.ErrorIs(t, err, ErrInvitationInvalid)
}

func TestRegisterRejectsRegisteredEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Invite(context.Background(), forms.InviteForm{Email: "new@example.com"})
	require.NoError(t, err)
	link := strings.TrimPrefix(f.mailer.invitations["new@example.com"], "https://dashboard.example.com/verify/")

	// The account appeared after the invitation went out.
	f.seedUser(t, "new@example.com", "Sup3rSecret")

	_, _, err = f.svc.Register(context.Background(), link, forms.RegisterForm{
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
	})
	assert.ErrorIs(t, err, ErrEmailInUse)
	assert.Empty(t, f.invitations.redeemed)
}

func TestRegisterRejectsForgedLink(t *testing.T) {
	f := newAuthFixture(t)

	forged, err := NewTokenService("other-secret").GenerateLink(TokenPurposeInvite, "inv-1", time.Hour)
	require.NoError(t, err)

	_, _, err = f.svc.Register(context.Background(), forged, forms.RegisterForm{
		Password:        "Sup3rSecret",
		ConfirmPassword: "Sup3rSecret",
	})
	assert.ErrorIs(t, err, ErrInvitationInvalid)
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.mailer.resets)
	assert.Empty(t, f.invitations.resets)
}

func TestResetPasswordFlow(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "user@example.com", "OldSecret1")

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))
	link := strings.TrimPrefix(f.mailer.resets["user@example.com"], "https://dashboard.example.com/reset/")
	require.NotEmpty(t, link)

	require.NoError(t, f.svc.ResetPassword(context.Background(), link, "NewSecret1"))
	assert.NoError(t, f.hasher.Compare(user.PasswordHash, "NewSecret1"))
	assert.Equal(t, []string{user.ID}, f.sessions.dropped)

	// The stored token is single use.
	err := f.svc.ResetPassword(context.Background(), link, "NewSecret2")
	assert.ErrorIs(t, err, ErrResetInvalid)
}

func TestResetPasswordEnforcesPolicy(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "user@example.com", "OldSecret1")

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "user@example.com"))
	link := strings.TrimPrefix(f.mailer.resets["user@example.com"], "https://dashboard.example.com/reset/")

	err := f.svc.ResetPassword(context.Background(), link, "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "user@example.com", "OldSecret1")

	err := f.svc.ChangePassword(context.Background(), user.ID, "wrong", "NewSecret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.svc.ChangePassword(context.Background(), user.ID, "OldSecret1", "weak")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, f.svc.ChangePassword(context.Background(), user.ID, "OldSecret1", "NewSecret1"))
	assert.NoError(t, f.hasher.Compare(user.PasswordHash, "NewSecret1"))
}
