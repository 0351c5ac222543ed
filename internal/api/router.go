package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/mbertozzi/storefront/internal/api/middleware"
	"github.com/mbertozzi/storefront/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Tenant *mw.Tenant
	Auth   *mw.Auth

	AdminToken string

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	LoginHandler http.HandlerFunc

	ListProducts   http.HandlerFunc
	GetProduct     http.HandlerFunc
	CreateProduct  http.HandlerFunc
	UpdateProduct  http.HandlerFunc
	DeleteProduct  http.HandlerFunc
	SearchProducts http.HandlerFunc

	ListNotifications http.HandlerFunc
	WebsocketHandler  http.Handler

	CreateTenant     http.HandlerFunc
	ListTenants      http.HandlerFunc
	DeactivateTenant http.HandlerFunc
	CreateDomain     http.HandlerFunc
	CreateUser       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
// Admin routes run outside tenant resolution; everything under /api/v1 is
// tenant-scoped by hostname.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public operational endpoints
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Root-scope admin surface
	r.Group(func(r chi.Router) {
		r.Use(mw.AdminAuth(deps.AdminToken))

		r.Post("/api/v1/admin/tenants", orNotImplemented(deps.CreateTenant))
		r.Get("/api/v1/admin/tenants", orNotImplemented(deps.ListTenants))
		r.Delete("/api/v1/admin/tenants/{tenantID}", orNotImplemented(deps.DeactivateTenant))
		r.Post("/api/v1/admin/tenants/{tenantID}/domains", orNotImplemented(deps.CreateDomain))
		r.Post("/api/v1/admin/tenants/{tenantID}/users", orNotImplemented(deps.CreateUser))
	})

	// Tenant-scoped surface
	r.Group(func(r chi.Router) {
		r.Use(deps.Tenant.Resolve)

		r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

		// Websocket authenticates itself from the query string before the
		// upgrade, so it sits outside the Bearer middleware.
		if deps.WebsocketHandler != nil {
			r.Handle("/api/v1/ws", deps.WebsocketHandler)
		}

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)

			r.Get("/api/v1/products", orNotImplemented(deps.ListProducts))
			r.Get("/api/v1/products/search", orNotImplemented(deps.SearchProducts))
			r.Get("/api/v1/products/{productID}", orNotImplemented(deps.GetProduct))
			r.Post("/api/v1/products", orNotImplemented(deps.CreateProduct))
			r.Put("/api/v1/products/{productID}", orNotImplemented(deps.UpdateProduct))
			r.Delete("/api/v1/products/{productID}", orNotImplemented(deps.DeleteProduct))

			r.Get("/api/v1/notifications", orNotImplemented(deps.ListNotifications))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
