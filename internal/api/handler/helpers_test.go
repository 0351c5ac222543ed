package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mbertozzi/storefront/internal/events"
	"github.com/mbertozzi/storefront/internal/store"
	"github.com/mbertozzi/storefront/internal/tenancy"
	"github.com/mbertozzi/storefront/pkg/models"
)

// fakeSession backs the handler tests with an in-memory tenant schema.
type fakeSession struct {
	products      map[uuid.UUID]*models.Product
	users         map[string]*models.User
	notifications map[uuid.UUID][]*models.Notification
	err           error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		products:      make(map[uuid.UUID]*models.Product),
		users:         make(map[string]*models.User),
		notifications: make(map[uuid.UUID][]*models.Notification),
	}
}

func (f *fakeSession) ListProducts(context.Context) ([]*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Product{}
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSession) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeSession) ProductsByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeSession) CreateProduct(_ context.Context, p *models.Product) error {
	if f.err != nil {
		return f.err
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeSession) UpdateProduct(_ context.Context, p *models.Product) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	f.products[p.ID] = p
	return nil
}

func (f *fakeSession) DeleteProduct(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeSession) UserByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeSession) CreateUser(_ context.Context, u *models.User) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.users[u.Email]; ok {
		return store.ErrDuplicateKey
	}
	f.users[u.Email] = u
	return nil
}

func (f *fakeSession) StaffUserIDs(context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, u := range f.users {
		if u.IsStaff {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

func (f *fakeSession) CreateNotifications(_ context.Context, userIDs []uuid.UUID, message string, createdAt time.Time) error {
	for _, id := range userIDs {
		f.notifications[id] = append(f.notifications[id], &models.Notification{
			ID:        uuid.New(),
			UserID:    id,
			Message:   message,
			CreatedAt: createdAt,
		})
	}
	return nil
}

func (f *fakeSession) ListNotifications(_ context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.notifications[userID]
	if out == nil {
		out = []*models.Notification{}
	}
	return out, nil
}

type fakeTenantStore struct {
	sess    *fakeSession
	err     error
	schemas []string
}

func (f *fakeTenantStore) WithSchema(_ context.Context, schema string, fn func(store.Session) error) error {
	f.schemas = append(f.schemas, schema)
	if f.err != nil {
		return f.err
	}
	return fn(f.sess)
}

// fakeCatalog is an in-memory stand-in for the tenant-namespaced cache.
type fakeCatalog struct {
	mu      sync.Mutex
	lists   map[string][]byte
	details map[string][]byte
	search  map[string][]byte
	version int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		lists:   make(map[string][]byte),
		details: make(map[string][]byte),
		search:  make(map[string][]byte),
		version: 1,
	}
}

func (f *fakeCatalog) GetList(_ context.Context, schema string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.lists[schema]
	return p, ok
}

func (f *fakeCatalog) SetList(_ context.Context, schema string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[schema] = payload
}

func (f *fakeCatalog) GetDetail(_ context.Context, schema string, id uuid.UUID) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.details[schema+":"+id.String()]
	return p, ok
}

func (f *fakeCatalog) SetDetail(_ context.Context, schema string, id uuid.UUID, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[schema+":"+id.String()] = payload
}

func (f *fakeCatalog) SearchVersion(_ context.Context, _ string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeCatalog) searchKey(schema string, version int64, query string) string {
	return fmt.Sprintf("%s:v%d:%s", schema, version, query)
}

func (f *fakeCatalog) GetSearchResult(_ context.Context, schema string, version int64, query string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.search[f.searchKey(schema, version, query)]
	return p, ok
}

func (f *fakeCatalog) SetSearchResult(_ context.Context, schema string, version int64, query string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.search[f.searchKey(schema, version, query)] = payload
}

// fakeDispatcher records dispatched mutations and their contexts.
type fakeDispatcher struct {
	mutations []events.Mutation
	contexts  []context.Context
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, m events.Mutation) {
	f.mutations = append(f.mutations, m)
	f.contexts = append(f.contexts, ctx)
}

// fakeIndex serves canned search results.
type fakeIndex struct {
	results []uuid.UUID
	err     error
	calls   int
}

func (f *fakeIndex) IndexProduct(context.Context, string, *models.Product) error { return nil }
func (f *fakeIndex) DeleteProduct(context.Context, string, uuid.UUID) error      { return nil }

func (f *fakeIndex) Search(context.Context, string, string) ([]uuid.UUID, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

// fakeRegistry is an in-memory registry for the admin handlers.
type fakeRegistry struct {
	tenants map[uuid.UUID]*models.Tenant
	domains map[string]*models.Domain
	err     error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		tenants: make(map[uuid.UUID]*models.Tenant),
		domains: make(map[string]*models.Domain),
	}
}

func (f *fakeRegistry) Ping(context.Context) error { return f.err }

func (f *fakeRegistry) CreateTenant(_ context.Context, t *models.Tenant) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.tenants {
		if existing.Name == t.Name || existing.Schema == t.Schema {
			return store.ErrDuplicateKey
		}
	}
	f.tenants[t.ID] = t
	return nil
}

func (f *fakeRegistry) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeRegistry) ListTenants(context.Context) ([]*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*models.Tenant{}
	for _, t := range f.tenants {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRegistry) DeactivateTenant(_ context.Context, id uuid.UUID) error {
	t, ok := f.tenants[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Active = false
	return nil
}

func (f *fakeRegistry) CreateDomain(_ context.Context, d *models.Domain) error {
	if _, ok := f.domains[d.Hostname]; ok {
		return store.ErrDuplicateKey
	}
	f.domains[d.Hostname] = d
	return nil
}

func (f *fakeRegistry) LookupDomain(_ context.Context, hostname string) (*models.Tenant, error) {
	d, ok := f.domains[hostname]
	if !ok {
		return nil, tenancy.ErrDomainNotFound
	}
	return f.tenants[d.TenantID], nil
}

// fakeProvisioner records provisioned schemas.
type fakeProvisioner struct {
	schemas []string
	err     error
}

func (f *fakeProvisioner) Provision(_ context.Context, schema string) error {
	if f.err != nil {
		return f.err
	}
	f.schemas = append(f.schemas, schema)
	return nil
}

func testTenant() tenancy.Context {
	return tenancy.Context{TenantID: uuid.New(), Schema: "acme"}
}

func withTenant(r *http.Request, tc tenancy.Context) *http.Request {
	return r.WithContext(tenancy.WithContext(r.Context(), tc))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
