package search

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mbertozzi/storefront/pkg/models"
)

// Sentinel errors for search backend failures.
var (
	// ErrSearchUnavailable means the index backend could not serve a query.
	// Handlers surface it as a degraded-service response, distinct from an
	// empty result set.
	ErrSearchUnavailable = errors.New("search unavailable")
	ErrIndexSync         = errors.New("index sync failed")
)

// Index is the per-tenant search index. The tenant schema is part of every
// call and is folded into the physical index name, so the component can never
// address an index that was not derived from the caller's own tenant.
//
// The index mirrors committed product state and is rebuildable from the
// relational store; Search returns ranked ids only, and callers rehydrate
// through a schema-scoped session for the same tenant.
type Index interface {
	IndexProduct(ctx context.Context, schema string, p *models.Product) error
	DeleteProduct(ctx context.Context, schema string, id uuid.UUID) error
	Search(ctx context.Context, schema, query string) ([]uuid.UUID, error)
}
