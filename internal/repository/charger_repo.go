package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chargehub/internal/authz"
	"chargehub/internal/models"
)

const chargerColumns = `id, name, description, ip_address, rest_api_port, api_key,
		last_connected, company_id, user_id`

// ChargerRepository handles CRUD for the chargers table.
type ChargerRepository struct {
	db *sql.DB
}

// NewChargerRepository returns repository.
func NewChargerRepository(db *sql.DB) *ChargerRepository {
	return &ChargerRepository{db: db}
}

func scanCharger(row interface{ Scan(...interface{}) error }) (*models.Charger, error) {
	var c models.Charger
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.IPAddress,
		&c.RestAPIPort,
		&c.APIKey,
		&c.LastConnected,
		&c.CompanyID,
		&c.UserID,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByAPIKey resolves the charger a telemetry push authenticates as.
func (r *ChargerRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Charger, error) {
	query := fmt.Sprintf(`SELECT %s FROM chargers WHERE api_key = $1`, chargerColumns)
	charger, err := scanCharger(r.db.QueryRowContext(ctx, query, apiKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return charger, nil
}

// GetByID returns one charger visible to the scope.
func (r *ChargerRepository) GetByID(ctx context.Context, scope authz.Scope, id int64) (*models.Charger, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM chargers c WHERE c.id = $1 %s
	`, qualifyChargerColumns(), chargerScopeFilter(scope, 2))

	args := []interface{}{id}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	charger, err := scanCharger(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return charger, nil
}

// List returns chargers visible to the scope.
func (r *ChargerRepository) List(ctx context.Context, scope authz.Scope) ([]models.Charger, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM chargers c WHERE true %s ORDER BY c.name
	`, qualifyChargerColumns(), chargerScopeFilter(scope, 1))

	var args []interface{}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chargers []models.Charger
	for rows.Next() {
		charger, err := scanCharger(rows)
		if err != nil {
			return nil, err
		}
		chargers = append(chargers, *charger)
	}
	return chargers, rows.Err()
}

// Create inserts a new charger.
func (r *ChargerRepository) Create(ctx context.Context, charger *models.Charger) error {
	const query = `
		INSERT INTO chargers (name, description, ip_address, rest_api_port, api_key, company_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		charger.Name,
		charger.Description,
		charger.IPAddress,
		charger.RestAPIPort,
		charger.APIKey,
		charger.CompanyID,
		charger.UserID,
	).Scan(&charger.ID)
}

// Update edits charger metadata.
func (r *ChargerRepository) Update(ctx context.Context, charger *models.Charger) error {
	const query = `
		UPDATE chargers
		SET name = $2, description = $3, ip_address = $4, rest_api_port = $5,
		    company_id = $6, user_id = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		charger.ID,
		charger.Name,
		charger.Description,
		charger.IPAddress,
		charger.RestAPIPort,
		charger.CompanyID,
		charger.UserID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a charger; controllers, snapshots and sessions cascade.
func (r *ChargerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM chargers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetAPIKey stores a regenerated API key.
func (r *ChargerRepository) SetAPIKey(ctx context.Context, id int64, apiKey string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE chargers SET api_key = $2 WHERE id = $1`, id, apiKey)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// TouchLastConnected records that the charger has just been heard from.
func (r *ChargerRepository) TouchLastConnected(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chargers SET last_connected = timezone('utc', now()) WHERE id = $1`, id)
	return err
}

func qualifyChargerColumns() string {
	return `c.id, c.name, c.description, c.ip_address, c.rest_api_port, c.api_key,
		c.last_connected, c.company_id, c.user_id`
}

func chargerScopeFilter(scope authz.Scope, userArg int) string {
	if scope.Admin {
		return ""
	}
	return fmt.Sprintf(` AND (c.user_id = $%d OR c.company_id IN (
		SELECT company_id FROM users_to_companies WHERE user_id = $%d))`, userArg, userArg)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
