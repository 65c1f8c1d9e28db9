package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"chargehub/internal/models"
)

// ErrUserNotFound represents missing user rows.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles CRUD for users and profiles.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns repository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	const query = `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query, user.ID, user.Email, user.PasswordHash, user.Role).
		Scan(&user.CreatedAt)
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
		LIMIT 1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	const query = `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users with their profiles.
func (r *UserRepository) List(ctx context.Context) ([]models.User, map[string]models.Profile, error) {
	const query = `
		SELECT u.id, u.email, u.password_hash, u.role, u.created_at,
		       p.id, p.first_name, p.last_name
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		ORDER BY u.email
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var users []models.User
	profiles := make(map[string]models.Profile)
	for rows.Next() {
		var user models.User
		var profileID *int64
		var firstName, lastName *string
		if err := rows.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt,
			&profileID, &firstName, &lastName); err != nil {
			return nil, nil, err
		}
		users = append(users, user)
		if profileID != nil {
			profiles[user.ID] = models.Profile{
				ID:        *profileID,
				UserID:    user.ID,
				FirstName: firstName,
				LastName:  lastName,
			}
		}
	}
	return users, profiles, rows.Err()
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// GetProfile returns the user's profile, or ErrNotFound.
func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `SELECT id, user_id, first_name, last_name FROM profiles WHERE user_id = $1`
	var p models.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or updates the user's profile.
func (r *UserRepository) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	const query = `
		INSERT INTO profiles (user_id, first_name, last_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query, profile.UserID, profile.FirstName, profile.LastName).
		Scan(&profile.ID)
}
