package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbertozzi/storefront/internal/tenancy"
	"github.com/mbertozzi/storefront/pkg/models"
)

// PostgresStore implements Registry and TenantStore over a shared pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants (registry, public schema) ---

func (s *PostgresStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO public.tenants (id, name, schema_name, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, t.Schema, t.Active, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, schema_name, active, created_at, updated_at
		 FROM public.tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Schema, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, schema_name, active, created_at, updated_at
		 FROM public.tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Schema, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// DeactivateTenant soft-deactivates a tenant. Its domains stay registered but
// no longer resolve; the schema and its data are left untouched.
func (s *PostgresStore) DeactivateTenant(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE public.tenants SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("deactivate tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Domains (registry, public schema) ---

func (s *PostgresStore) CreateDomain(ctx context.Context, d *models.Domain) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO public.domains (id, tenant_id, hostname, is_primary, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.TenantID, d.Hostname, d.IsPrimary, d.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create domain: %w", err)
	}
	return nil
}

// LookupDomain returns the tenant owning the hostname. The unique index on
// domains.hostname keeps this an index lookup, never a scan of business data.
func (s *PostgresStore) LookupDomain(ctx context.Context, hostname string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.schema_name, t.active, t.created_at, t.updated_at
		 FROM public.domains d JOIN public.tenants t ON t.id = d.tenant_id
		 WHERE d.hostname = $1`, hostname,
	).Scan(&t.ID, &t.Name, &t.Schema, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, tenancy.ErrDomainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup domain: %w", err)
	}
	return &t, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
