package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chargehub/internal/authz"
	"chargehub/internal/models"
)

const companyColumns = `id, name, ic, dic, street, city, zip`

// CompanyRepository handles companies, memberships and the shared RFID pool.
type CompanyRepository struct {
	db *sql.DB
}

// NewCompanyRepository returns repository.
func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func scanCompany(row interface{ Scan(...interface{}) error }) (*models.Company, error) {
	var c models.Company
	if err := row.Scan(&c.ID, &c.Name, &c.IC, &c.DIC, &c.Street, &c.City, &c.Zip); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID returns one company visible to the scope.
func (r *CompanyRepository) GetByID(ctx context.Context, scope authz.Scope, id int64) (*models.Company, error) {
	query := fmt.Sprintf(`SELECT %s FROM companies c WHERE c.id = $1 %s`,
		qualifyCompanyColumns(), companyScopeFilter(scope, 2))

	args := []interface{}{id}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	company, err := scanCompany(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return company, nil
}

// List returns companies visible to the scope ordered by name.
func (r *CompanyRepository) List(ctx context.Context, scope authz.Scope) ([]models.Company, error) {
	query := fmt.Sprintf(`SELECT %s FROM companies c WHERE true %s ORDER BY c.name`,
		qualifyCompanyColumns(), companyScopeFilter(scope, 1))

	var args []interface{}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *company)
	}
	return companies, rows.Err()
}

// Create inserts a new company.
func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	const query = `
		INSERT INTO companies (name, ic, dic, street, city, zip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		company.Name, company.IC, company.DIC, company.Street, company.City, company.Zip,
	).Scan(&company.ID)
}

// Update edits company details.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	const query = `
		UPDATE companies
		SET name = $2, ic = $3, dic = $4, street = $5, city = $6, zip = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		company.ID, company.Name, company.IC, company.DIC, company.Street, company.City, company.Zip)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a company; memberships and RFID pool entries cascade.
func (r *CompanyRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MembershipsForUser returns all membership rows of one user.
func (r *CompanyRepository) MembershipsForUser(ctx context.Context, userID string) ([]models.CompanyMember, error) {
	const query = `
		SELECT user_id, company_id, role, rfid_tag, rfid_valid_till
		FROM users_to_companies
		WHERE user_id = $1
	`
	return r.queryMembers(ctx, query, userID)
}

// Members returns all membership rows of one company.
func (r *CompanyRepository) Members(ctx context.Context, companyID int64) ([]models.CompanyMember, error) {
	const query = `
		SELECT user_id, company_id, role, rfid_tag, rfid_valid_till
		FROM users_to_companies
		WHERE company_id = $1
	`
	return r.queryMembers(ctx, query, companyID)
}

func (r *CompanyRepository) queryMembers(ctx context.Context, query string, arg interface{}) ([]models.CompanyMember, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.CompanyMember
	for rows.Next() {
		var m models.CompanyMember
		if err := rows.Scan(&m.UserID, &m.CompanyID, &m.Role, &m.RfidTag, &m.RfidValidTill); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember creates or updates a membership row. Re-adding an existing member
// only replaces the role; the personal RFID assignment belongs to
// SetMemberRfid and survives role changes.
func (r *CompanyRepository) AddMember(ctx context.Context, member *models.CompanyMember) error {
	const query = `
		INSERT INTO users_to_companies (user_id, company_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, company_id) DO UPDATE SET
			role = EXCLUDED.role
	`
	_, err := r.db.ExecContext(ctx, query, member.UserID, member.CompanyID, member.Role)
	return err
}

// RemoveMember deletes a membership row.
func (r *CompanyRepository) RemoveMember(ctx context.Context, userID string, companyID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users_to_companies WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetMemberRfid updates the per-member RFID tag.
func (r *CompanyRepository) SetMemberRfid(ctx context.Context, member *models.CompanyMember) error {
	const query = `
		UPDATE users_to_companies
		SET rfid_tag = $3, rfid_valid_till = $4
		WHERE user_id = $1 AND company_id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		member.UserID, member.CompanyID, member.RfidTag, member.RfidValidTill)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ToggleFollow flips the user's follow state for a company and reports
// whether the user follows it afterwards.
func (r *CompanyRepository) ToggleFollow(ctx context.Context, userID string, companyID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM company_follows WHERE user_id = $1 AND company_id = $2`, userID, companyID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO company_follows (user_id, company_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, company_id) DO NOTHING
	`, userID, companyID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func qualifyCompanyColumns() string {
	return `c.id, c.name, c.ic, c.dic, c.street, c.city, c.zip`
}

func companyScopeFilter(scope authz.Scope, userArg int) string {
	if scope.Admin {
		return ""
	}
	return fmt.Sprintf(` AND c.id IN (
		SELECT company_id FROM users_to_companies WHERE user_id = $%d)`, userArg)
}
