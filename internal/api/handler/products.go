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

	"github.com/mbertozzi/storefront/internal/api/response"
	"github.com/mbertozzi/storefront/internal/events"
	"github.com/mbertozzi/storefront/internal/search"
	"github.com/mbertozzi/storefront/internal/store"
	"github.com/mbertozzi/storefront/internal/tenancy"
	"github.com/mbertozzi/storefront/pkg/models"
)

// ProductCache is the slice of the catalog cache the product handlers use.
type ProductCache interface {
	GetList(ctx context.Context, schema string) ([]byte, bool)
	SetList(ctx context.Context, schema string, payload []byte)
	GetDetail(ctx context.Context, schema string, id uuid.UUID) ([]byte, bool)
	SetDetail(ctx context.Context, schema string, id uuid.UUID, payload []byte)
	SearchVersion(ctx context.Context, schema string) int64
	GetSearchResult(ctx context.Context, schema string, version int64, query string) ([]byte, bool)
	SetSearchResult(ctx context.Context, schema string, version int64, query string, payload []byte)
}

// Dispatcher runs post-commit side effects for a committed write.
type Dispatcher interface {
	Dispatch(ctx context.Context, m events.Mutation)
}

func tenantFrom(w http.ResponseWriter, r *http.Request) (tenancy.Context, bool) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusNotFound,
			"UNKNOWN_TENANT", "No tenant is registered for this hostname", nil)
	}
	return tc, ok
}

// NewListProductsHandler returns the handler for GET /api/v1/products.
// Cache-aside: serve the cached page when present, otherwise read the
// tenant's schema and fill the cache on the way out.
func NewListProductsHandler(tenants store.TenantStore, catalog ProductCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		if payload, hit := catalog.GetList(r.Context(), tc.Schema); hit {
			response.JSON(w, json.RawMessage(payload))
			return
		}

		var products []*models.Product
		err := tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			var err error
			products, err = sess.ListProducts(r.Context())
			return err
		})
		if err != nil {
			slog.Error("list products failed", "schema", tc.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to list products", nil)
			return
		}

		payload, err := json.Marshal(products)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to encode products", nil)
			return
		}
		catalog.SetList(r.Context(), tc.Schema, payload)
		response.JSON(w, json.RawMessage(payload))
	}
}

// NewGetProductHandler returns the handler for GET /api/v1/products/{productID}.
func NewGetProductHandler(tenants store.TenantStore, catalog ProductCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "productID must be a valid UUID", nil)
			return
		}

		if payload, hit := catalog.GetDetail(r.Context(), tc.Schema, id); hit {
			response.JSON(w, json.RawMessage(payload))
			return
		}

		var product *models.Product
		err = tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			var err error
			product, err = sess.GetProduct(r.Context(), id)
			return err
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"RESOURCE_NOT_FOUND", "Product not found", nil)
				return
			}
			slog.Error("get product failed", "schema", tc.Schema, "product_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load product", nil)
			return
		}

		payload, err := json.Marshal(product)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to encode product", nil)
			return
		}
		catalog.SetDetail(r.Context(), tc.Schema, id, payload)
		response.JSON(w, json.RawMessage(payload))
	}
}

type productRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"is_active"`
}

func (req *productRequest) validateCreate() map[string][]string {
	details := map[string][]string{}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		details["name"] = append(details["name"], "name is required")
	}
	if req.Price == nil {
		details["price"] = append(details["price"], "price is required")
	} else if *req.Price < 0 {
		details["price"] = append(details["price"], "price must not be negative")
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// NewCreateProductHandler returns the handler for POST /api/v1/products.
// The consistency pipeline runs after the row is committed and before the
// response is written, so a 201 means cache, index, and notifications have
// all been attempted.
func NewCreateProductHandler(tenants store.TenantStore, pipeline Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if details := req.validateCreate(); details != nil {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "Invalid product", details)
			return
		}

		now := time.Now().UTC()
		product := &models.Product{
			ID:        uuid.New(),
			Name:      strings.TrimSpace(*req.Name),
			Price:     *req.Price,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.Description != nil {
			product.Description = *req.Description
		}
		if req.IsActive != nil {
			product.IsActive = *req.IsActive
		}

		err := tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			return sess.CreateProduct(r.Context(), product)
		})
		if err != nil {
			slog.Error("create product failed", "schema", tc.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to create product", nil)
			return
		}

		// The write is committed; a client disconnect must not cancel the
		// invalidation and sync that follow.
		pipeline.Dispatch(context.WithoutCancel(r.Context()), events.Mutation{
			Tenant:  tc,
			Kind:    events.KindProduct,
			Op:      events.OpCreate,
			ID:      product.ID,
			Product: product,
		})

		response.Created(w, product)
	}
}

// NewUpdateProductHandler returns the handler for PUT /api/v1/products/{productID}.
// Fields absent from the body keep their current values.
func NewUpdateProductHandler(tenants store.TenantStore, pipeline Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "productID must be a valid UUID", nil)
			return
		}

		var req productRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "Invalid product", map[string][]string{
					"name": {"name must not be empty"},
				})
			return
		}
		if req.Price != nil && *req.Price < 0 {
			response.Error(w, http.StatusBadRequest,
				"VALIDATION_ERROR", "Invalid product", map[string][]string{
					"price": {"price must not be negative"},
				})
			return
		}

		var product *models.Product
		err = tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			var err error
			product, err = sess.GetProduct(r.Context(), id)
			if err != nil {
				return err
			}
			if req.Name != nil {
				product.Name = strings.TrimSpace(*req.Name)
			}
			if req.Description != nil {
				product.Description = *req.Description
			}
			if req.Price != nil {
				product.Price = *req.Price
			}
			if req.IsActive != nil {
				product.IsActive = *req.IsActive
			}
			product.UpdatedAt = time.Now().UTC()
			return sess.UpdateProduct(r.Context(), product)
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"RESOURCE_NOT_FOUND", "Product not found", nil)
				return
			}
			slog.Error("update product failed", "schema", tc.Schema, "product_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to update product", nil)
			return
		}

		pipeline.Dispatch(context.WithoutCancel(r.Context()), events.Mutation{
			Tenant:  tc,
			Kind:    events.KindProduct,
			Op:      events.OpUpdate,
			ID:      product.ID,
			Product: product,
		})

		response.JSON(w, product)
	}
}

// NewDeleteProductHandler returns the handler for DELETE /api/v1/products/{productID}.
func NewDeleteProductHandler(tenants store.TenantStore, pipeline Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "productID must be a valid UUID", nil)
			return
		}

		err = tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
			return sess.DeleteProduct(r.Context(), id)
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound,
					"RESOURCE_NOT_FOUND", "Product not found", nil)
				return
			}
			slog.Error("delete product failed", "schema", tc.Schema, "product_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to delete product", nil)
			return
		}

		pipeline.Dispatch(context.WithoutCancel(r.Context()), events.Mutation{
			Tenant: tc,
			Kind:   events.KindProduct,
			Op:     events.OpDelete,
			ID:     id,
		})

		response.NoContent(w)
	}
}

// NewSearchProductsHandler returns the handler for GET /api/v1/products/search.
// Results come back from the index as IDs and are rehydrated from the
// tenant's schema, so a stale index entry can never leak a deleted row.
func NewSearchProductsHandler(tenants store.TenantStore, catalog ProductCache, index search.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenantFrom(w, r)
		if !ok {
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "q is required", nil)
			return
		}

		version := catalog.SearchVersion(r.Context(), tc.Schema)
		if payload, hit := catalog.GetSearchResult(r.Context(), tc.Schema, version, query); hit {
			response.JSON(w, json.RawMessage(payload))
			return
		}

		ids, err := index.Search(r.Context(), tc.Schema, query)
		if err != nil {
			if errors.Is(err, search.ErrSearchUnavailable) {
				response.Error(w, http.StatusServiceUnavailable,
					"SEARCH_UNAVAILABLE", "Search temporarily unavailable", nil)
				return
			}
			slog.Error("search failed", "schema", tc.Schema, "error", err)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Search failed", nil)
			return
		}

		products := []*models.Product{}
		if len(ids) > 0 {
			var rows []*models.Product
			err = tenants.WithSchema(r.Context(), tc.Schema, func(sess store.Session) error {
				var err error
				rows, err = sess.ProductsByIDs(r.Context(), ids)
				return err
			})
			if err != nil {
				slog.Error("search rehydration failed", "schema", tc.Schema, "error", err)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "Search failed", nil)
				return
			}

			// Keep the index's relevance order.
			byID := make(map[uuid.UUID]*models.Product, len(rows))
			for _, p := range rows {
				byID[p.ID] = p
			}
			for _, id := range ids {
				if p, ok := byID[id]; ok {
					products = append(products, p)
				}
			}
		}

		payload, err := json.Marshal(products)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to encode results", nil)
			return
		}
		catalog.SetSearchResult(r.Context(), tc.Schema, version, query, payload)
		response.JSON(w, json.RawMessage(payload))
	}
}
