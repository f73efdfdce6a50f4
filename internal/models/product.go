package models

import (
	"github.com/google/uuid"
)

// Product is a marketplace listing owned by a seller. Orders copy the name,
// price and image at checkout; the ownership link is what authorizes a
// seller to advance orders containing the product.
type Product struct {
	BaseModel
	SellerID    uuid.UUID `gorm:"type:uuid;index" json:"seller_id"`
	Seller      *User     `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	ImageURL    string    `json:"image_url"`
	Stock       int       `json:"stock"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
}
