package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbertozzi/storefront/internal/events"
	"github.com/mbertozzi/storefront/internal/search"
	"github.com/mbertozzi/storefront/pkg/models"
)

func seedProduct(sess *fakeSession, name string) *models.Product {
	p := &models.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     9.99,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	sess.products[p.ID] = p
	return p
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["data"]
}

func TestListProductsFillsCacheOnMiss(t *testing.T) {
	sess := newFakeSession()
	seedProduct(sess, "Widget")
	tenants := &fakeTenantStore{sess: sess}
	catalog := newFakeCatalog()
	tc := testTenant()

	h := NewListProductsHandler(tenants, catalog)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), tc))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData(t, w).([]any), 1)

	_, cached := catalog.GetList(t.Context(), tc.Schema)
	assert.True(t, cached)
	assert.Equal(t, []string{tc.Schema}, tenants.schemas)
}

func TestListProductsServesFromCache(t *testing.T) {
	tenants := &fakeTenantStore{sess: newFakeSession()}
	catalog := newFakeCatalog()
	tc := testTenant()
	catalog.SetList(t.Context(), tc.Schema, []byte(`[{"name":"Cached"}]`))

	h := NewListProductsHandler(tenants, catalog)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), tc))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cached")
	assert.Empty(t, tenants.schemas, "cache hit must not touch the store")
}

func TestGetProductNotFound(t *testing.T) {
	tenants := &fakeTenantStore{sess: newFakeSession()}
	h := NewGetProductHandler(tenants, newFakeCatalog())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil)
	req = withTenant(withURLParam(req, "productID", uuid.NewString()), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RESOURCE_NOT_FOUND")
}

func TestGetProductBadID(t *testing.T) {
	h := NewGetProductHandler(&fakeTenantStore{sess: newFakeSession()}, newFakeCatalog())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil)
	req = withTenant(withURLParam(req, "productID", "nope"), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProductDispatchesPipeline(t *testing.T) {
	sess := newFakeSession()
	tenants := &fakeTenantStore{sess: sess}
	dispatcher := &fakeDispatcher{}
	tc := testTenant()

	h := NewCreateProductHandler(tenants, dispatcher)

	body := `{"name":"Widget","description":"A widget","price":19.95}`
	req := withTenant(httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body)), tc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, sess.products, 1)

	require.Len(t, dispatcher.mutations, 1)
	m := dispatcher.mutations[0]
	assert.Equal(t, events.KindProduct, m.Kind)
	assert.Equal(t, events.OpCreate, m.Op)
	assert.Equal(t, tc, m.Tenant)
	require.NotNil(t, m.Product)
	assert.Equal(t, "Widget", m.Product.Name)
}

func TestCreateProductDispatchOutlivesRequestCancel(t *testing.T) {
	sess := newFakeSession()
	dispatcher := &fakeDispatcher{}
	tc := testTenant()

	h := NewCreateProductHandler(&fakeTenantStore{sess: sess}, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	body := `{"name":"Widget","price":19.95}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	req = withTenant(req.WithContext(ctx), tc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, dispatcher.contexts, 1)

	// A client disconnect after the commit must not cancel the invalidation
	// and sync work running on the dispatched context.
	cancel()
	assert.NoError(t, dispatcher.contexts[0].Err())
}

func TestCreateProductValidation(t *testing.T) {
	h := NewCreateProductHandler(&fakeTenantStore{sess: newFakeSession()}, &fakeDispatcher{})

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"price":1}`},
		{"blank name", `{"name":"  ","price":1}`},
		{"missing price", `{"name":"Widget"}`},
		{"negative price", `{"name":"Widget","price":-1}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withTenant(httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(tc.body)), testTenant())
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateProductMergesFields(t *testing.T) {
	sess := newFakeSession()
	existing := seedProduct(sess, "Widget")
	dispatcher := &fakeDispatcher{}
	tc := testTenant()

	h := NewUpdateProductHandler(&fakeTenantStore{sess: sess}, dispatcher)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/x", strings.NewReader(`{"price":29.5}`))
	req = withTenant(withURLParam(req, "productID", existing.ID.String()), tc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	updated := sess.products[existing.ID]
	assert.Equal(t, "Widget", updated.Name, "unset fields keep their values")
	assert.Equal(t, 29.5, updated.Price)

	require.Len(t, dispatcher.mutations, 1)
	assert.Equal(t, events.OpUpdate, dispatcher.mutations[0].Op)
}

func TestUpdateProductNotFound(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	h := NewUpdateProductHandler(&fakeTenantStore{sess: newFakeSession()}, dispatcher)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/x", strings.NewReader(`{"price":1}`))
	req = withTenant(withURLParam(req, "productID", uuid.NewString()), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, dispatcher.mutations, "nothing committed, nothing dispatched")
}

func TestDeleteProductDispatchesPipeline(t *testing.T) {
	sess := newFakeSession()
	existing := seedProduct(sess, "Widget")
	dispatcher := &fakeDispatcher{}

	h := NewDeleteProductHandler(&fakeTenantStore{sess: sess}, dispatcher)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/x", nil)
	req = withTenant(withURLParam(req, "productID", existing.ID.String()), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, sess.products)

	require.Len(t, dispatcher.mutations, 1)
	m := dispatcher.mutations[0]
	assert.Equal(t, events.OpDelete, m.Op)
	assert.Equal(t, existing.ID, m.ID)
	assert.Nil(t, m.Product)
}

func TestSearchRequiresQuery(t *testing.T) {
	h := NewSearchProductsHandler(&fakeTenantStore{sess: newFakeSession()}, newFakeCatalog(), &fakeIndex{})

	req := withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products/search", nil), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchRehydratesInIndexOrder(t *testing.T) {
	sess := newFakeSession()
	first := seedProduct(sess, "Blue Widget")
	second := seedProduct(sess, "Widget Pro")
	stale := uuid.New() // indexed but no longer in the database

	index := &fakeIndex{results: []uuid.UUID{second.ID, stale, first.ID}}
	h := NewSearchProductsHandler(&fakeTenantStore{sess: sess}, newFakeCatalog(), index)

	req := withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=widget", nil), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w).([]any)
	require.Len(t, data, 2, "stale index hit must be dropped")
	assert.Equal(t, second.ID.String(), data[0].(map[string]any)["id"])
	assert.Equal(t, first.ID.String(), data[1].(map[string]any)["id"])
}

func TestSearchServesCachedResult(t *testing.T) {
	catalog := newFakeCatalog()
	tc := testTenant()
	catalog.SetSearchResult(t.Context(), tc.Schema, 1, "widget", []byte(`[{"name":"Cached"}]`))

	index := &fakeIndex{}
	h := NewSearchProductsHandler(&fakeTenantStore{sess: newFakeSession()}, catalog, index)

	req := withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=widget", nil), tc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cached")
	assert.Equal(t, 0, index.calls)
}

func TestSearchBackendDown(t *testing.T) {
	index := &fakeIndex{err: search.ErrSearchUnavailable}
	h := NewSearchProductsHandler(&fakeTenantStore{sess: newFakeSession()}, newFakeCatalog(), index)

	req := withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=widget", nil), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SEARCH_UNAVAILABLE")
}

func TestSearchEmptyResultIsOK(t *testing.T) {
	h := NewSearchProductsHandler(&fakeTenantStore{sess: newFakeSession()}, newFakeCatalog(), &fakeIndex{})

	req := withTenant(httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=nothing", nil), testTenant())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeData(t, w).([]any))
}
