package models

import "time"

// Company membership roles.
const (
	MemberRoleManager  = "MANAGER"
	MemberRoleEmployee = "EMPLOYEE"
	MemberRoleHost     = "HOST"
)

// Company is a tenant owning chargers and members.
type Company struct {
	ID     int64   `db:"id" json:"id"`
	Name   string  `db:"name" json:"name"`
	IC     string  `db:"ic" json:"ic"`
	DIC    *string `db:"dic" json:"dic"`
	Street *string `db:"street" json:"street"`
	City   *string `db:"city" json:"city"`
	Zip    *string `db:"zip" json:"zip"`
}

// CompanyMember is a user's membership row in a company. The membership may
// carry a per-user RFID tag as an alternative to the shared company pool.
type CompanyMember struct {
	UserID        string     `db:"user_id" json:"user_id"`
	CompanyID     int64      `db:"company_id" json:"company_id"`
	Role          string     `db:"role" json:"role"`
	RfidTag       *string    `db:"rfid_tag" json:"rfid_tag"`
	RfidValidTill *time.Time `db:"rfid_valid_till" json:"rfid_valid_till"`
}

// RfidTag is an entry in a company's shared RFID tag pool.
type RfidTag struct {
	ID            int64      `db:"id" json:"id"`
	CompanyID     int64      `db:"company_id" json:"company_id"`
	RfidTag       string     `db:"rfid_tag" json:"rfid_tag"`
	RfidValidTill *time.Time `db:"rfid_valid_till" json:"rfid_valid_till"`
	Description   *string    `db:"description" json:"description"`
}
