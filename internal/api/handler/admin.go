package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/store"
	"github.com/mbertozzi/storefront/internal/tenancy"
	"github.com/mbertozzi/storefront/pkg/models"
)

// SchemaProvisioner creates and migrates a tenant schema.
type SchemaProvisioner interface {
	Provision(ctx context.Context, schema string) error
}

// NewCreateTenantHandler returns the handler for POST /api/v1/admin/tenants.
// Registers the tenant, provisions its schema, and attaches the primary
// domain in one call. Provisioning is idempotent, so a failed request can be
// retried with the same schema name.
func NewCreateTenantHandler(registry store.Registry, provisioner SchemaProvisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Schema   string `json:"schema_name"`
			Hostname string `json:"hostname"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		req.Schema = strings.TrimSpace(req.Schema)
		req.Hostname = tenancy.ParseHost(req.Hostname)

		details := map[string][]string{}
		if req.Name == "" {
			details["name"] = append(details["name"], "name is required")
		}
		if !store.ValidSchemaName(req.Schema) {
			details["schema_name"] = append(details["schema_name"],
				"schema_name must be a lowercase identifier")
		}
		if req.Hostname == "" {
			details["hostname"] = append(details["hostname"], "hostname is required")
		}
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "Invalid tenant", details)
			return
		}

		now := time.Now().UTC()
		tenant := &models.Tenant{
			ID:        uuid.New(),
			Name:      req.Name,
			Schema:    req.Schema,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := registry.CreateTenant(r.Context(), tenant); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict,
					"DUPLICATE", "Tenant name or schema already exists", nil)
				return
			}
			slog.Error("create tenant failed", "schema", req.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create tenant", nil)
			return
		}

		if err := provisioner.Provision(r.Context(), tenant.Schema); err != nil {
			slog.Error("provision schema failed", "schema", tenant.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to provision tenant schema", nil)
			return
		}

		domain := &models.Domain{
			ID:        uuid.New(),
			TenantID:  tenant.ID,
			Hostname:  req.Hostname,
			IsPrimary: true,
			CreatedAt: now,
		}
		if err := registry.CreateDomain(r.Context(), domain); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict,
					"DUPLICATE", "Hostname already registered", nil)
				return
			}
			slog.Error("create domain failed", "hostname", req.Hostname, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to register domain", nil)
			return
		}

		response.Created(w, map[string]any{
			"tenant": tenant,
			"domain": domain,
		})
	}
}

// NewListTenantsHandler returns the handler for GET /api/v1/admin/tenants.
func NewListTenantsHandler(registry store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenants, err := registry.ListTenants(r.Context())
		if err != nil {
			slog.Error("list tenants failed", "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list tenants", nil)
			return
		}
		response.JSON(w, tenants)
	}
}

// NewDeactivateTenantHandler returns the handler for DELETE /api/v1/admin/tenants/{tenantID}.
// Deactivation keeps the schema and its data; the tenant just stops resolving.
func NewDeactivateTenantHandler(registry store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "tenantID must be a valid UUID", nil)
			return
		}

		if err := registry.DeactivateTenant(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"RESOURCE_NOT_FOUND", "Tenant not found", nil)
				return
			}
			slog.Error("deactivate tenant failed", "tenant_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to deactivate tenant", nil)
			return
		}
		response.NoContent(w)
	}
}

// NewCreateDomainHandler returns the handler for
// POST /api/v1/admin/tenants/{tenantID}/domains. Adds an extra hostname to an
// existing tenant.
func NewCreateDomainHandler(registry store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "tenantID must be a valid UUID", nil)
			return
		}

		var req struct {
			Hostname  string `json:"hostname"`
			IsPrimary bool   `json:"is_primary"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		req.Hostname = tenancy.ParseHost(req.Hostname)
		if req.Hostname == "" {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "hostname is required", nil)
			return
		}

		if _, err := registry.GetTenant(r.Context(), tenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"RESOURCE_NOT_FOUND", "Tenant not found", nil)
				return
			}
			slog.Error("tenant lookup failed", "tenant_id", tenantID, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to register domain", nil)
			return
		}

		domain := &models.Domain{
			ID:        uuid.New(),
			TenantID:  tenantID,
			Hostname:  req.Hostname,
			IsPrimary: req.IsPrimary,
			CreatedAt: time.Now().UTC(),
		}
		if err := registry.CreateDomain(r.Context(), domain); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict,
					"DUPLICATE", "Hostname already registered", nil)
				return
			}
			slog.Error("create domain failed", "hostname", req.Hostname, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to register domain", nil)
			return
		}
		response.Created(w, domain)
	}
}

// NewCreateUserHandler returns the handler for
// POST /api/v1/admin/tenants/{tenantID}/users. The user row lands in the
// target tenant's own schema.
func NewCreateUserHandler(registry store.Registry, tenants store.TenantStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "tenantID must be a valid UUID", nil)
			return
		}

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			IsStaff  bool   `json:"is_staff"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Email == "" || req.Password == "" {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "email and password are required", nil)
			return
		}

		tenant, err := registry.GetTenant(r.Context(), tenantID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"RESOURCE_NOT_FOUND", "Tenant not found", nil)
				return
			}
			slog.Error("tenant lookup failed", "tenant_id", tenantID, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create user", nil)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("password hash failed", "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create user", nil)
			return
		}

		user := &models.User{
			ID:           uuid.New(),
			Email:        req.Email,
			PasswordHash: string(hash),
			IsStaff:      req.IsStaff,
			CreatedAt:    time.Now().UTC(),
		}
		err = tenants.WithSchema(r.Context(), tenant.Schema, func(sess store.Session) error {
			return sess.CreateUser(r.Context(), user)
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict,
					"DUPLICATE", "Email already registered for this tenant", nil)
				return
			}
			slog.Error("create user failed", "schema", tenant.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create user", nil)
			return
		}

		response.Created(w, user)
	}
}
