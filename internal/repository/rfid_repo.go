package repository

import (
	"context"
	"database/sql"
	"errors"

	"chargehub/internal/models"
)

// RfidRepository handles the company-level shared RFID tag pool.
type RfidRepository struct {
	db *sql.DB
}

// NewRfidRepository returns repository.
func NewRfidRepository(db *sql.DB) *RfidRepository {
	return &RfidRepository{db: db}
}

// ListByCompany returns the company's tag pool.
func (r *RfidRepository) ListByCompany(ctx context.Context, companyID int64) ([]models.RfidTag, error) {
	const query = `
		SELECT id, company_id, rfid_tag, rfid_valid_till, description
		FROM rfid_tags
		WHERE company_id = $1
		ORDER BY rfid_tag
	`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []models.RfidTag
	for rows.Next() {
		var t models.RfidTag
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.RfidTag, &t.RfidValidTill, &t.Description); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Get returns one pool entry.
func (r *RfidRepository) Get(ctx context.Context, id int64) (*models.RfidTag, error) {
	const query = `
		SELECT id, company_id, rfid_tag, rfid_valid_till, description
		FROM rfid_tags
		WHERE id = $1
	`
	var t models.RfidTag
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.CompanyID, &t.RfidTag, &t.RfidValidTill, &t.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Save inserts a new pool entry or updates an existing one.
func (r *RfidRepository) Save(ctx context.Context, tag *models.RfidTag) error {
	if tag.ID == 0 {
		const insert = `
			INSERT INTO rfid_tags (company_id, rfid_tag, rfid_valid_till, description)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		return r.db.QueryRowContext(ctx, insert,
			tag.CompanyID, tag.RfidTag, tag.RfidValidTill, tag.Description).Scan(&tag.ID)
	}

	const update = `
		UPDATE rfid_tags
		SET rfid_tag = $2, rfid_valid_till = $3, description = $4
		WHERE id = $1 AND company_id = $5
	`
	result, err := r.db.ExecContext(ctx, update,
		tag.ID, tag.RfidTag, tag.RfidValidTill, tag.Description, tag.CompanyID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a pool entry.
func (r *RfidRepository) Delete(ctx context.Context, id, companyID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM rfid_tags WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
