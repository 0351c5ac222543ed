package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entity owned by a single tenant schema. Mutations to
// products drive the cache invalidation / search sync / notification pipeline.
type Product struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description"`
	Price       float64   `db:"price"       json:"price"`
	IsActive    bool      `db:"is_active"   json:"is_active"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}
