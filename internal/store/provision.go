package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Provisioner creates tenant schemas and brings them to the current tenant
// migration version. Schema/migration lifecycle beyond that (alters on live
// tenants, reindexing) is operated out of band.
type Provisioner struct {
	pool          *pgxpool.Pool
	databaseURL   string
	migrationsDir string
}

// NewProvisioner creates a Provisioner. migrationsDir is the tenant migration
// set, not the registry one.
func NewProvisioner(pool *pgxpool.Pool, databaseURL, migrationsDir string) *Provisioner {
	return &Provisioner{pool: pool, databaseURL: databaseURL, migrationsDir: migrationsDir}
}

// Provision creates the schema if needed and applies tenant migrations inside
// it. Safe to call again for an existing tenant: both steps are idempotent.
func (p *Provisioner) Provision(ctx context.Context, schema string) error {
	if !ValidSchemaName(schema) {
		return fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
	}

	ident := pgx.Identifier{schema}.Sanitize()
	if _, err := p.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if err := RunTenantMigrations(p.databaseURL, p.migrationsDir, schema); err != nil {
		return fmt.Errorf("migrate schema %s: %w", schema, err)
	}
	return nil
}
