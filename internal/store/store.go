package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mbertozzi/storefront/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrSchemaActivation means the storage backend rejected a schema switch.
// Fatal to the request: there is no silent fallback to another schema.
var ErrSchemaActivation = errors.New("schema activation failed")

// ErrInvalidSchema means the schema name does not match the allowed
// identifier pattern and was rejected before touching the database.
var ErrInvalidSchema = errors.New("invalid schema name")

// Registry is the administrative surface over the shared registry tables.
// All of its operations run against the public schema, never a tenant schema.
type Registry interface {
	Ping(ctx context.Context) error
	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	DeactivateTenant(ctx context.Context, id uuid.UUID) error
	CreateDomain(ctx context.Context, d *models.Domain) error
	LookupDomain(ctx context.Context, hostname string) (*models.Tenant, error)
}

// TenantStore grants scoped access to one tenant's schema. The Session passed
// to fn is the only way to reach tenant-local tables, which makes a
// cross-tenant query structurally impossible while a scope is active.
type TenantStore interface {
	WithSchema(ctx context.Context, schema string, fn func(s Session) error) error
}

// Session exposes the operations available inside an active tenant schema.
type Session interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	StaffUserIDs(ctx context.Context) ([]uuid.UUID, error)

	CreateNotifications(ctx context.Context, userIDs []uuid.UUID, message string, createdAt time.Time) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
}
