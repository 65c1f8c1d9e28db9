package models

import "time"

// Charger is a site gateway owning one or more charging controllers,
// identified externally by its API key.
type Charger struct {
	ID            int64      `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Description   *string    `db:"description" json:"description"`
	IPAddress     *string    `db:"ip_address" json:"ip_address"`
	RestAPIPort   *int       `db:"rest_api_port" json:"rest_api_port"`
	APIKey        *string    `db:"api_key" json:"-"`
	LastConnected *time.Time `db:"last_connected" json:"last_connected"`
	CompanyID     *int64     `db:"company_id" json:"company_id"`
	UserID        *string    `db:"user_id" json:"user_id"`
}
