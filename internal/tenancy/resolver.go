package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/mbertozzi/storefront/pkg/models"
)

// ErrUnknownTenant means the hostname does not map to any active tenant.
// Callers must reject the request or connection before any schema-scoped
// work runs; there is no fallback namespace.
var ErrUnknownTenant = errors.New("unknown tenant")

// DomainLookup finds the active tenant owning a hostname. Implementations
// signal "no such domain" with an error matching ErrDomainNotFound.
type DomainLookup interface {
	LookupDomain(ctx context.Context, hostname string) (*models.Tenant, error)
}

// ErrDomainNotFound is the sentinel a DomainLookup returns when no domain
// row matches the hostname.
var ErrDomainNotFound = errors.New("domain not found")

// Resolver maps an inbound hostname to a tenant Context.
type Resolver interface {
	Resolve(ctx context.Context, host string) (Context, error)
}

type registryResolver struct {
	lookup DomainLookup
}

// NewResolver returns a Resolver backed by the tenant registry. Resolution is
// a pure read: exact hostname match against registered domains, no wildcard
// or subdomain inference.
func NewResolver(lookup DomainLookup) Resolver {
	return &registryResolver{lookup: lookup}
}

func (r *registryResolver) Resolve(ctx context.Context, host string) (Context, error) {
	hostname := ParseHost(host)
	if hostname == "" {
		return Context{}, ErrUnknownTenant
	}

	tenant, err := r.lookup.LookupDomain(ctx, hostname)
	if errors.Is(err, ErrDomainNotFound) {
		return Context{}, fmt.Errorf("%w: %s", ErrUnknownTenant, hostname)
	}
	if err != nil {
		return Context{}, fmt.Errorf("resolve tenant for %s: %w", hostname, err)
	}
	if !tenant.Active {
		return Context{}, fmt.Errorf("%w: %s", ErrUnknownTenant, hostname)
	}

	return Context{TenantID: tenant.ID, Schema: tenant.Schema}, nil
}
