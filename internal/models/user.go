package models

import "time"

// Account roles.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User is a dashboard account.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the account has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile holds optional display data for a user.
type Profile struct {
	ID        int64   `db:"id" json:"id"`
	UserID    string  `db:"user_id" json:"user_id"`
	FirstName *string `db:"first_name" json:"first_name"`
	LastName  *string `db:"last_name" json:"last_name"`
}
