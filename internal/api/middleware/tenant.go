package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/tenancy"
)

// Tenant resolves the request hostname to a tenant and stashes the result in
// the request context. Everything downstream of this middleware runs inside
// exactly one tenant; a hostname that resolves to none is a hard 404.
type Tenant struct {
	resolver tenancy.Resolver
}

func NewTenant(resolver tenancy.Resolver) *Tenant {
	return &Tenant{resolver: resolver}
}

func (t *Tenant) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := tenancy.ParseHost(r.Host)

		tc, err := t.resolver.Resolve(r.Context(), host)
		if err != nil {
			if errors.Is(err, tenancy.ErrUnknownTenant) {
				response.Error(w, http.StatusNotFound,
					"UNKNOWN_TENANT", "No tenant is registered for this hostname", nil)
				return
			}
			slog.Error("tenant resolution failed", "host", host, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to resolve tenant", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(tenancy.WithContext(r.Context(), tc)))
	})
}
