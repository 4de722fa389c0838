// Package models contains domain entities and business models for the banking administration system
package models

import (
	"time"
)

// User is one identity record. UserID is the externally visible identifier:
// either allocated from the sequence counter or inherited from a legacy import,
// which is why it is a string and not always numeric.
type User struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"size:64;not null;uniqueIndex:uk_users_user_id" json:"user_id"`

	FirstName string `gorm:"size:255;not null" json:"first_name"`
	LastName  string `gorm:"size:255;not null" json:"last_name"`
	Email     string `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`

	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Catalog codes, resolved through RoleName/StatusName
	RoleCode   int `gorm:"not null;index:idx_users_role_code" json:"role_code"`
	StatusCode int `gorm:"not null;index:idx_users_status_code" json:"status_code"`

	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Address     *string    `gorm:"size:255" json:"address,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Account     *Account     `gorm:"foreignKey:UserID;references:UserID" json:"account,omitempty"`
	LoginEvents []LoginEvent `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID              *uint
	UserID          *string
	Email           *string
	RoleCode        *int
	StatusCode      *int
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastLoginAfter  *time.Time
	LastLoginBefore *time.Time
}

// RoleName resolves the user's role code against the catalog.
func (u *User) RoleName() string {
	name, ok := RoleNameByCode(u.RoleCode)
	if !ok {
		return ""
	}
	return name
}

// StatusName resolves the user's stored status code against the catalog.
func (u *User) StatusName() string {
	name, ok := StatusNameByCode(u.StatusCode)
	if !ok {
		return ""
	}
	return name
}

// HoldsLedger reports whether this identity kind carries a balance account.
func (u *User) HoldsLedger() bool {
	return u.RoleCode == RoleCodeCustomer
}

// IsAdminTier reports whether the user belongs to the administrative roles that
// require the captcha-gated login path.
func (u *User) IsAdminTier() bool {
	return RoleIsAdminTier(u.RoleCode)
}

// HasFinancialVisibility reports whether the user's role may see summed balances.
func (u *User) HasFinancialVisibility() bool {
	return RoleHasFinancialVisibility(u.RoleCode)
}

// FullName joins the user's first and last name for display and notifications.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
