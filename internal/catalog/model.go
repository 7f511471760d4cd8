package catalog

import (
	"errors"
	"time"
)

// ErrNotFound indicates the catalog entity does not exist or is inactive.
var ErrNotFound = errors.New("catalog: not found")

// Product is a physical part in the live catalog. Prices are minor currency
// units.
type Product struct {
	ID           int64     `json:"id" db:"id"`
	SKU          string    `json:"sku" db:"sku"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	VariantTitle string    `json:"variant_title" db:"variant_title"`
	Price        int64     `json:"price" db:"price"`
	TaxRate      float64   `json:"tax_rate" db:"tax_rate"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Service is a billable work item (installation, inspection).
type Service struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Price       int64     `json:"price" db:"price"`
	TaxRate     float64   `json:"tax_rate" db:"tax_rate"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
