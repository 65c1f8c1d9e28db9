package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chargehub/internal/forms"
	"chargehub/internal/models"
	"chargehub/internal/password"
	"chargehub/internal/repository"
)

var (
	// ErrInvalidCredentials represents login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrEmailInUse is returned when inviting an already-registered email.
	ErrEmailInUse = errors.New("auth: email already registered")
	// ErrInvitationInvalid covers unknown, redeemed or expired invitations.
	ErrInvitationInvalid = errors.New("auth: invitation is invalid or expired")
	// ErrResetInvalid covers unknown, used or expired reset tokens.
	ErrResetInvalid = errors.New("auth: reset link is invalid or expired")
	// ErrWeakPassword means the submitted password fails the policy.
	ErrWeakPassword = errors.New("auth: password does not meet the policy")
)

const (
	invitationLifetime = 14 * 24 * time.Hour
	resetLifetime      = time.Hour
)

// UserStore is the account persistence used by authentication.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

// MembershipStore attaches invited users to their company.
type MembershipStore interface {
	AddMember(ctx context.Context, member *models.CompanyMember) error
}

// InvitationStore is the invitation/reset persistence used by authentication.
type InvitationStore interface {
	Create(ctx context.Context, inv *models.RegisterInvitation) error
	GetByID(ctx context.Context, id string) (*models.RegisterInvitation, error)
	MarkRedeemed(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id string) error
	CreateReset(ctx context.Context, reset *models.PasswordReset) error
	ConsumeReset(ctx context.Context, tokenHash string) (*models.PasswordReset, error)
}

// BrowserSessionStore issues and revokes dashboard session tokens.
type BrowserSessionStore interface {
	Create(ctx context.Context, userID string) (string, error)
	Destroy(ctx context.Context, token string) error
	DestroyAllForUser(ctx context.Context, userID string) error
}

// Mailer sends the outbound notification mail.
type Mailer interface {
	SendInvitation(ctx context.Context, to, link string) error
	SendPasswordReset(ctx context.Context, to, link string) error
}

// AuthService contains login, invitation and password-reset logic.
type AuthService struct {
	users       UserStore
	memberships MembershipStore
	invitations InvitationStore
	sessions    BrowserSessionStore
	hasher      password.Hasher
	tokens      *TokenService
	mailer      Mailer
	websiteURL  string
	logger      *zap.Logger
}

// NewAuthService builds AuthService.
func NewAuthService(
	users UserStore,
	memberships MembershipStore,
	invitations InvitationStore,
	sessions BrowserSessionStore,
	hasher password.Hasher,
	tokens *TokenService,
	mailer Mailer,
	websiteURL string,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		memberships: memberships,
		invitations: invitations,
		sessions:    sessions,
		hasher:      hasher,
		tokens:      tokens,
		mailer:      mailer,
		websiteURL:  strings.TrimRight(websiteURL, "/"),
		logger:      logger,
	}
}

// Login authenticates a user and issues a browser session token.
func (s *AuthService) Login(ctx context.Context, email, plaintext string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plaintext == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, plaintext); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return token, user, nil
}

// Logout destroys one browser session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

// Invite creates a registration invitation and mails the signed link.
// Any earlier invitation for the same email is replaced.
func (s *AuthService) Invite(ctx context.Context, form forms.InviteForm) (*models.RegisterInvitation, error) {
	if _, err := s.users.GetByEmail(ctx, form.Email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	inv := &models.RegisterInvitation{
		ID:        NewInvitationID(),
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      form.Role,
		CompanyID: form.CompanyID,
		ExpiresAt: time.Now().UTC().Add(invitationLifetime),
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, err
	}

	if err := s.sendInvitationMail(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ResendInvitation re-mails the link for a pending invitation and extends its
// expiry.
func (s *AuthService) ResendInvitation(ctx context.Context, invitationID string) error {
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvitationInvalid
		}
		return err
	}
	if inv.UserID != nil {
		return ErrInvitationInvalid
	}

	inv.ExpiresAt = time.Now().UTC().Add(invitationLifetime)
	if err := s.invitations.Create(ctx, inv); err != nil {
		return err
	}
	return s.sendInvitationMail(ctx, inv)
}

// CancelInvitation deletes a pending invitation.
func (s *AuthService) CancelInvitation(ctx context.Context, invitationID string) error {
	if err := s.invitations.Delete(ctx, invitationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvitationInvalid
		}
		return err
	}
	return nil
}

// LookupInvitation validates a signed registration link and returns the
// pending invitation it redeems.
func (s *AuthService) LookupInvitation(ctx context.Context, link string) (*models.RegisterInvitation, error) {
	invitationID, err := s.tokens.ValidateLink(link, TokenPurposeInvite)
	if err != nil {
		return nil, ErrInvitationInvalid
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvitationInvalid
		}
		return nil, err
	}
	if inv.UserID != nil || inv.Expired(time.Now().UTC()) {
		return nil, ErrInvitationInvalid
	}
	return inv, nil
}

// Register redeems an invitation: creates the account, its profile and the
// company membership, then opens a browser session. An account created for
// the invited email after the invitation was sent makes the link unusable.
func (s *AuthService) Register(ctx context.Context, link string, form forms.RegisterForm) (string, *models.User, error) {
	inv, err := s.LookupInvitation(ctx, link)
	if err != nil {
		return "", nil, err
	}

	if _, err := s.users.GetByEmail(ctx, inv.Email); err == nil {
		return "", nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return "", nil, err
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		return "", nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        inv.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", nil, err
	}

	firstName, lastName := form.FirstName, form.LastName
	if firstName == nil {
		firstName = inv.FirstName
	}
	if lastName == nil {
		lastName = inv.LastName
	}
	if err := s.users.UpsertProfile(ctx, &models.Profile{
		UserID:    user.ID,
		FirstName: firstName,
		LastName:  lastName,
	}); err != nil {
		return "", nil, err
	}

	if inv.CompanyID != nil {
		role := models.MemberRoleEmployee
		if inv.Role != nil {
			role = *inv.Role
		}
		if err := s.memberships.AddMember(ctx, &models.CompanyMember{
			UserID:    user.ID,
			CompanyID: *inv.CompanyID,
			Role:      role,
		}); err != nil {
			return "", nil, err
		}
	}

	if err := s.invitations.MarkRedeemed(ctx, inv.ID, user.ID); err != nil {
		return "", nil, err
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("invitation redeemed",
		zap.String("user_id", user.ID), zap.String("invitation_id", inv.ID))
	return token, user, nil
}

// RequestPasswordReset mails a reset link when the account exists. The
// response is identical either way so the endpoint cannot be used to probe
// for registered emails.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	tokenHash := hashToken(uuid.NewString())
	if err := s.invitations.CreateReset(ctx, &models.PasswordReset{
		TokenHash: tokenHash,
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(resetLifetime),
	}); err != nil {
		return err
	}

	link, err := s.tokens.GenerateLink(TokenPurposeReset, tokenHash, resetLifetime)
	if err != nil {
		return err
	}
	return s.mailer.SendPasswordReset(ctx, user.Email, fmt.Sprintf("%s/reset/%s", s.websiteURL, link))
}

// ResetPassword consumes a reset link and replaces the password, dropping all
// of the user's browser sessions.
func (s *AuthService) ResetPassword(ctx context.Context, link, newPassword string) error {
	tokenHash, err := s.tokens.ValidateLink(link, TokenPurposeReset)
	if err != nil {
		return ErrResetInvalid
	}

	reset, err := s.invitations.ConsumeReset(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetInvalid
		}
		return err
	}
	if time.Now().UTC().After(reset.ExpiresAt) {
		return ErrResetInvalid
	}

	if !forms.ValidatePassword(newPassword) {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
		return err
	}

	if err := s.sessions.DestroyAllForUser(ctx, reset.UserID); err != nil {
		s.logger.Warn("failed to drop sessions after password reset",
			zap.String("user_id", reset.UserID), zap.Error(err))
	}
	return nil
}

// ChangePassword replaces the password of a logged-in user after verifying
// the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, replacement string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if !forms.ValidatePassword(replacement) {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash(replacement)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func (s *AuthService) sendInvitationMail(ctx context.Context, inv *models.RegisterInvitation) error {
	link, err := s.tokens.GenerateLink(TokenPurposeInvite, inv.ID, time.Until(inv.ExpiresAt))
	if err != nil {
		return err
	}
	return s.mailer.SendInvitation(ctx, inv.Email, fmt.Sprintf("%s/verify/%s", s.websiteURL, link))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
