package model

import (
	"time"
)

// Role is the closed set of account roles. A single canonical vocabulary is
// used everywhere (no USER/CLIENT aliases).
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOwner    Role = "OWNER"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOwner || r == RoleCustomer
}

// User represents the central account entity for logic and database structure
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"type:varchar(20);not null" json:"phone"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"` // Omit password hash from JSON responses
	Role      Role      `gorm:"type:varchar(20);not null" json:"role"`
	IsActive  bool      `gorm:"default:true;not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	CustomerProfile *CustomerProfile `gorm:"foreignKey:UserID" json:"customer_profile,omitempty"`
}

// CustomerProfile is the address/contact extension owned by a CUSTOMER
// account. It is created in the same transaction as registration and is kept
// when the account is soft-deactivated.
type CustomerProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Address   string    `gorm:"type:varchar(100);not null" json:"address"`
	City      string    `gorm:"type:varchar(50);not null" json:"city"`
	Location  string    `gorm:"type:varchar(50)" json:"location,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
