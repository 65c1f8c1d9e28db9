package models

import "time"

// RegisterInvitation is a pending invite to create an account. UserID is set
// once the invitation has been redeemed.
type RegisterInvitation struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FirstName *string   `db:"first_name" json:"first_name"`
	LastName  *string   `db:"last_name" json:"last_name"`
	Role      *string   `db:"role" json:"role"`
	CompanyID *int64    `db:"company_id" json:"company_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	UserID    *string   `db:"user_id" json:"user_id"`
}

// Expired reports whether the invitation is past its expiry.
func (i *RegisterInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// PasswordReset is a single-use reset token record; only the token hash is stored.
type PasswordReset struct {
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    string    `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}
