package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a tenant-local account. Users live inside the tenant schema, so the
// same email can exist under different tenants without collision.
type User struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsStaff      bool      `db:"is_staff"      json:"is_staff"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
