package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultProductImage is the placeholder key assigned to products without
// a custom image. Blobs under this key are never stored or deleted.
const DefaultProductImage = "https://via.placeholder.com/150"

// Product represents a product in the catalog. Category is a value copy
// taken when the product was last written: renaming a category does not
// rewrite the snapshots already embedded in product rows.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	UUID        uuid.UUID `json:"uuid" db:"uuid"`
	Brand       string    `json:"brand" db:"brand"`
	Model       string    `json:"model" db:"model"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	Image       string    `json:"image" db:"image"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted   bool      `json:"is_deleted" db:"is_deleted"`
	Category    Category  `json:"category"`
}
