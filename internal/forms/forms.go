// Package forms holds the declarative per-entity validation applied before
// any write: trimming, length limits and format checks. Each form validates
// itself and reports field-keyed messages.
package forms

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Errors maps field names to validation messages.
type Errors map[string]string

// Valid reports whether no field failed.
func (e Errors) Valid() bool {
	return len(e) == 0
}

// ValidatePassword enforces the account password policy: at least 8
// characters with a lowercase letter, an uppercase letter and a digit.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	return hasLower && hasUpper && hasDigit
}

// LoginForm is the credential pair submitted at login.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate normalizes and checks the form.
func (f *LoginForm) Validate() Errors {
	errs := Errors{}
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	if f.Email == "" {
		errs["email"] = "email is required"
	} else if !emailPattern.MatchString(f.Email) {
		errs["email"] = "enter a valid email"
	}
	if strings.TrimSpace(f.Password) == "" {
		errs["password"] = "password is required"
	}
	return errs
}

// RegisterForm completes an invited registration.
type RegisterForm struct {
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
}

// Validate checks the password policy and name limits.
func (f *RegisterForm) Validate() Errors {
	errs := Errors{}
	if !ValidatePassword(f.Password) {
		errs["password"] = "password must have at least 8 characters including a lowercase letter, an uppercase letter and a digit"
	}
	if f.Password != f.ConfirmPassword {
		errs["confirm_password"] = "passwords do not match"
	}
	trimOptional(&f.FirstName)
	trimOptional(&f.LastName)
	checkMaxLen(errs, "first_name", f.FirstName, 50)
	checkMaxLen(errs, "last_name", f.LastName, 50)
	return errs
}

// ResetRequestForm asks for a password-reset link.
type ResetRequestForm struct {
	Email string `json:"email"`
}

// Validate normalizes and checks the form.
func (f *ResetRequestForm) Validate() Errors {
	errs := Errors{}
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = "enter a valid email"
	}
	return errs
}

// ChargerForm creates or edits a charger.
type ChargerForm struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IPAddress   *string `json:"ip_address"`
	RestAPIPort *int    `json:"rest_api_port"`
	CompanyID   *int64  `json:"company_id"`
	UserID      *string `json:"user_id"`
}

// Validate normalizes and checks the form.
func (f *ChargerForm) Validate() Errors {
	errs := Errors{}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		errs["name"] = "charger name cannot be empty"
	}
	checkMaxLen(errs, "name", &f.Name, 50)
	trimOptional(&f.Description)
	trimOptional(&f.IPAddress)
	if f.RestAPIPort != nil && (*f.RestAPIPort < 1 || *f.RestAPIPort > 65535) {
		errs["rest_api_port"] = "invalid port"
	}
	return errs
}

// ControllerForm renames a charging point.
type ControllerForm struct {
	ChargingPointName *string `json:"charging_point_name"`
}

// Validate normalizes the form.
func (f *ControllerForm) Validate() Errors {
	trimOptional(&f.ChargingPointName)
	return Errors{}
}

// CompanyForm creates or edits a company.
type CompanyForm struct {
	Name   string  `json:"name"`
	IC     string  `json:"ic"`
	DIC    *string `json:"dic"`
	Street *string `json:"street"`
	City   *string `json:"city"`
	Zip    *string `json:"zip"`
}

// Validate normalizes and checks the form.
func (f *CompanyForm) Validate() Errors {
	errs := Errors{}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		errs["name"] = "company name cannot be empty"
	}
	checkMaxLen(errs, "name", &f.Name, 50)
	f.IC = strings.TrimSpace(f.IC)
	if len(f.IC) != 8 {
		errs["ic"] = "company registration number must have 8 characters"
	}
	trimOptional(&f.DIC)
	trimOptional(&f.Street)
	trimOptional(&f.City)
	trimOptional(&f.Zip)
	return errs
}

// EmployeeForm adds a registered user to a company.
type EmployeeForm struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Validate checks the form.
func (f *EmployeeForm) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(f.UserID) == "" {
		errs["user_id"] = "select a registered user"
	}
	switch f.Role {
	case "MANAGER", "EMPLOYEE", "HOST":
	default:
		errs["role"] = "select an employee role"
	}
	return errs
}

// EmployeeRfidForm assigns a personal RFID tag to a company member.
type EmployeeRfidForm struct {
	UserID        string     `json:"user_id"`
	RfidTag       string     `json:"rfid_tag"`
	RfidValidTill *time.Time `json:"rfid_valid_till"`
}

// Validate normalizes and checks the form.
func (f *EmployeeRfidForm) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(f.UserID) == "" {
		errs["user_id"] = "user is required"
	}
	f.RfidTag = strings.TrimSpace(f.RfidTag)
	return errs
}

// RfidForm creates or edits a shared RFID pool entry.
type RfidForm struct {
	ID            *int64     `json:"id"`
	RfidTag       string     `json:"rfid_tag"`
	RfidValidTill *time.Time `json:"rfid_valid_till"`
	Description   *string    `json:"description"`
}

// Validate normalizes and checks the form.
func (f *RfidForm) Validate() Errors {
	errs := Errors{}
	f.RfidTag = strings.TrimSpace(f.RfidTag)
	if f.RfidTag == "" {
		errs["rfid_tag"] = "RFID tag cannot be empty"
	}
	trimOptional(&f.Description)
	return errs
}

// InviteForm invites a new user, optionally straight into a company.
type InviteForm struct {
	Email     string  `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	CompanyID *int64  `json:"company_id"`
	Role      *string `json:"role"`
}

// Validate normalizes and checks the form. Company and role must be supplied
// together or not at all.
func (f *InviteForm) Validate() Errors {
	errs := Errors{}
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = "enter a valid email"
	}
	trimOptional(&f.FirstName)
	trimOptional(&f.LastName)
	checkMaxLen(errs, "first_name", f.FirstName, 50)
	checkMaxLen(errs, "last_name", f.LastName, 50)
	hasCompany := f.CompanyID != nil
	hasRole := f.Role != nil && strings.TrimSpace(*f.Role) != ""
	if hasCompany != hasRole {
		errs["role"] = "select an employee role"
	}
	return errs
}

func trimOptional(value **string) {
	if *value == nil {
		return
	}
	trimmed := strings.TrimSpace(**value)
	if trimmed == "" {
		*value = nil
		return
	}
	*value = &trimmed
}

func checkMaxLen(errs Errors, field string, value *string, max int) {
	if value != nil && len(*value) > max {
		errs[field] = "value is too long"
	}
}
