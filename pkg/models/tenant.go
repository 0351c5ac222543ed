package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated customer organization. Every tenant owns a dedicated
// Postgres schema; all of its business entities live inside that schema and
// are never visible outside it.
type Tenant struct {
	ID        uuid.UUID `db:"id"          json:"id"`
	Name      string    `db:"name"        json:"name"`
	Schema    string    `db:"schema_name" json:"schema_name"`
	Active    bool      `db:"active"      json:"active"`
	CreatedAt time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt time.Time `db:"updated_at"  json:"updated_at"`
}

// Domain maps a routable hostname to exactly one tenant. A hostname resolves
// to at most one active tenant at any time (unique index on hostname).
type Domain struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	Hostname  string    `db:"hostname"   json:"hostname"`
	IsPrimary bool      `db:"is_primary" json:"is_primary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
