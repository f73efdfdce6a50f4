package models

import (
	"github.com/google/uuid"
)

// Roles assigned to accounts. The order service trusts the role carried by
// the authenticated principal and does not re-validate credentials.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// User represents an authenticated account: buyer, seller or admin.
type User struct {
	BaseModel
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	Email        string        `gorm:"uniqueIndex" json:"email"`
	Phone        string        `json:"phone"`
	DisplayName  string        `json:"display_name"`
	PasswordHash string        `json:"-"`
	Role         string        `gorm:"index;default:buyer" json:"role"`
	Addresses    []UserAddress `json:"addresses,omitempty"`
	Orders       []Order       `gorm:"foreignKey:BuyerID" json:"orders,omitempty"`
}

// UserAddress is a saved delivery address. Orders copy its fields at
// checkout instead of referencing it, so later edits do not rewrite history.
type UserAddress struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AddressLine string `json:"address_line"`
	Apartment   string `json:"apartment"`
	City        string `json:"city"`
	District    string `json:"district"`
	PostalCode  string `json:"postal_code"`
	IsDefault   bool   `json:"is_default"`
}
