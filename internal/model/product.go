package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a poultry product listed by a seller.
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SellerID    uuid.UUID       `json:"sellerId" db:"seller_id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Unit        string          `json:"unit" db:"unit"`
	Stock       int             `json:"stock" db:"stock"`
	ImageURLs   []string        `json:"imageUrls" db:"image_urls"`
	IsActive    bool            `json:"isActive" db:"is_active"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// ProductRequest is the payload for creating or replacing a product.
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	Stock       int             `json:"stock"`
	ImageURLs   []string        `json:"imageUrls"`
}

// ProductFilter narrows catalogue listings.
type ProductFilter struct {
	Category string
	Search   string
	SellerID *uuid.UUID
	Page
}
