package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbertozzi/storefront/pkg/models"
)

func seedTenant(reg *fakeRegistry, name, schema string) *models.Tenant {
	t := &models.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Schema:    schema,
		Active:    true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	reg.tenants[t.ID] = t
	return t
}

func TestCreateTenantProvisionsSchema(t *testing.T) {
	reg := newFakeRegistry()
	prov := &fakeProvisioner{}

	h := NewCreateTenantHandler(reg, prov)

	body := `{"name":"Acme","schema_name":"acme","hostname":"Acme.Example.com:8080"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"acme"}, prov.schemas)

	require.Len(t, reg.tenants, 1)
	require.Len(t, reg.domains, 1)
	domain, ok := reg.domains["acme.example.com"]
	require.True(t, ok, "hostname must be stored normalized")
	assert.True(t, domain.IsPrimary)
}

func TestCreateTenantRejectsBadSchemaName(t *testing.T) {
	reg := newFakeRegistry()
	prov := &fakeProvisioner{}
	h := NewCreateTenantHandler(reg, prov)

	cases := []string{
		`{"name":"Acme","schema_name":"Acme","hostname":"acme.test"}`,
		`{"name":"Acme","schema_name":"1acme","hostname":"acme.test"}`,
		`{"name":"Acme","schema_name":"acme;drop","hostname":"acme.test"}`,
		`{"name":"Acme","schema_name":"","hostname":"acme.test"}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, prov.schemas)
}

func TestCreateTenantDuplicate(t *testing.T) {
	reg := newFakeRegistry()
	seedTenant(reg, "Acme", "acme")

	h := NewCreateTenantHandler(reg, &fakeProvisioner{})

	body := `{"name":"Acme","schema_name":"acme","hostname":"acme.test"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants", strings.NewReader(body)))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "DUPLICATE")
}

func TestListTenants(t *testing.T) {
	reg := newFakeRegistry()
	seedTenant(reg, "Acme", "acme")
	seedTenant(reg, "Beta", "beta")

	h := NewListTenantsHandler(reg)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/tenants", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["data"].([]any), 2)
}

func TestDeactivateTenant(t *testing.T) {
	reg := newFakeRegistry()
	tenant := seedTenant(reg, "Acme", "acme")

	h := NewDeactivateTenantHandler(reg)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/tenants/x", nil), "tenantID", tenant.ID.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, reg.tenants[tenant.ID].Active)
}

func TestDeactivateTenantNotFound(t *testing.T) {
	h := NewDeactivateTenantHandler(newFakeRegistry())

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/tenants/x", nil), "tenantID", uuid.NewString())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDomainForTenant(t *testing.T) {
	reg := newFakeRegistry()
	tenant := seedTenant(reg, "Acme", "acme")

	h := NewCreateDomainHandler(reg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants/x/domains", strings.NewReader(`{"hostname":"shop.acme.test"}`))
	req = withURLParam(req, "tenantID", tenant.ID.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	_, ok := reg.domains["shop.acme.test"]
	assert.True(t, ok)
}

func TestCreateDomainUnknownTenant(t *testing.T) {
	h := NewCreateDomainHandler(newFakeRegistry())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants/x/domains", strings.NewReader(`{"hostname":"shop.acme.test"}`))
	req = withURLParam(req, "tenantID", uuid.NewString())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUserHashesPassword(t *testing.T) {
	reg := newFakeRegistry()
	tenant := seedTenant(reg, "Acme", "acme")
	sess := newFakeSession()

	h := NewCreateUserHandler(reg, &fakeTenantStore{sess: sess})

	body := `{"email":"Staff@Acme.Test","password":"s3cret","is_staff":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants/x/users", strings.NewReader(body))
	req = withURLParam(req, "tenantID", tenant.ID.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	user, ok := sess.users["staff@acme.test"]
	require.True(t, ok, "email must be stored normalized")
	assert.True(t, user.IsStaff)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	reg := newFakeRegistry()
	tenant := seedTenant(reg, "Acme", "acme")
	sess := newFakeSession()
	seedUser(t, sess, "staff@acme.test", "other", false)

	h := NewCreateUserHandler(reg, &fakeTenantStore{sess: sess})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants/x/users", strings.NewReader(`{"email":"staff@acme.test","password":"s3cret"}`))
	req = withURLParam(req, "tenantID", tenant.ID.String())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
