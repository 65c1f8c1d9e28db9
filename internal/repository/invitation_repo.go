package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"chargehub/internal/models"
)

const invitationColumns = `id, email, first_name, last_name, role, company_id, expires_at, user_id`

// InvitationRepository handles registration invitations and password resets.
type InvitationRepository struct {
	db *sql.DB
}

// NewInvitationRepository returns repository.
func NewInvitationRepository(db *sql.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create stores a new invitation, replacing any earlier one for the same email.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.RegisterInvitation) error {
	inv.Email = strings.ToLower(strings.TrimSpace(inv.Email))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM register_invitations WHERE email = $1 AND user_id IS NULL`, inv.Email); err != nil {
		return err
	}

	const insert = `
		INSERT INTO register_invitations (id, email, first_name, last_name, role, company_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insert,
		inv.ID, inv.Email, inv.FirstName, inv.LastName, inv.Role, inv.CompanyID, inv.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID returns one invitation.
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*models.RegisterInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM register_invitations WHERE id = $1`
	var inv models.RegisterInvitation
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.Email, &inv.FirstName, &inv.LastName, &inv.Role,
		&inv.CompanyID, &inv.ExpiresAt, &inv.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListPending returns invitations that have not been redeemed.
func (r *InvitationRepository) ListPending(ctx context.Context) ([]models.RegisterInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM register_invitations WHERE user_id IS NULL ORDER BY email`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.RegisterInvitation
	for rows.Next() {
		var inv models.RegisterInvitation
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.FirstName, &inv.LastName, &inv.Role,
			&inv.CompanyID, &inv.ExpiresAt, &inv.UserID); err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// MarkRedeemed ties the invitation to the account it created.
func (r *InvitationRepository) MarkRedeemed(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE register_invitations SET user_id = $2 WHERE id = $1 AND user_id IS NULL`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete cancels an invitation.
func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM register_invitations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CreateReset stores a password-reset token hash, dropping earlier ones for
// the same user.
func (r *InvitationRepository) CreateReset(ctx context.Context, reset *models.PasswordReset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM password_resets WHERE user_id = $1`, reset.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		reset.TokenHash, reset.UserID, reset.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit()
}

// ConsumeReset atomically fetches and deletes a reset record by token hash.
func (r *InvitationRepository) ConsumeReset(ctx context.Context, tokenHash string) (*models.PasswordReset, error) {
	const query = `
		DELETE FROM password_resets
		WHERE token_hash = $1
		RETURNING token_hash, user_id, expires_at
	`
	var reset models.PasswordReset
	err := r.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&reset.TokenHash, &reset.UserID, &reset.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reset, nil
}
