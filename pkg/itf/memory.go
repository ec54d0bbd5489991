package itf

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/domain/entities/sitesetting"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/iota-uz/nero/pkg/composables"
)

// TenantRepository is an in-memory tenant.Repository. It returns the
// same sentinel errors as the persistence implementation and is safe
// for concurrent use, so race scenarios behave like the real catalog.
type TenantRepository struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*tenant.Tenant
	schemas map[string]struct{}
}

func NewTenantRepository() *TenantRepository {
	return &TenantRepository{
		tenants: make(map[uuid.UUID]*tenant.Tenant),
		schemas: make(map[string]struct{}),
	}
}

func (r *TenantRepository) GetByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, persistence.ErrTenantNotFound
	}
	return t, nil
}

func (r *TenantRepository) List(_ context.Context) ([]*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*tenant.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (r *TenantRepository) Create(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[t.ID()]; ok {
		return nil, persistence.ErrTenantConflict
	}
	if _, ok := r.schemas[t.SchemaName()]; ok {
		return nil, persistence.ErrTenantConflict
	}
	r.tenants[t.ID()] = t
	r.schemas[t.SchemaName()] = struct{}{}
	return t, nil
}

func (r *TenantRepository) UpdateState(_ context.Context, id uuid.UUID, from, to tenant.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return persistence.ErrTenantNotFound
	}
	if t.State() != from && t.State() != to {
		return persistence.ErrStaleTenantState
	}
	if t.State() == from {
		if err := t.Transition(to); err != nil {
			return err
		}
	}
	return nil
}

func (r *TenantRepository) Update(_ context.Context, t *tenant.Tenant) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[t.ID()]; !ok {
		return nil, persistence.ErrTenantNotFound
	}
	r.tenants[t.ID()] = t
	return t, nil
}

func (r *TenantRepository) SchemaNameExists(_ context.Context, schemaName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.schemas[schemaName]
	return ok, nil
}

// DomainRepository is an in-memory domain.Repository keyed by
// normalized host. FailGetByHost makes lookups for the named host fail
// until cleared, so tests can drive catalog-corruption error paths the
// map itself can never produce.
type DomainRepository struct {
	mu        sync.Mutex
	hosts     map[string]*domain.Domain
	failHosts map[string]error
}

func NewDomainRepository() *DomainRepository {
	return &DomainRepository{
		hosts:     make(map[string]*domain.Domain),
		failHosts: make(map[string]error),
	}
}

func (r *DomainRepository) FailGetByHost(host string, err error) {
	r.mu.Lock()
	r.failHosts[host] = err
	r.mu.Unlock()
}

func (r *DomainRepository) ClearGetByHostFailure(host string) {
	r.mu.Lock()
	delete(r.failHosts, host)
	r.mu.Unlock()
}

func (r *DomainRepository) GetByHost(_ context.Context, host string) (*domain.Domain, error) {
	normalized, err := domain.NormalizeHost(host)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failHosts[normalized]; ok {
		return nil, err
	}
	d, ok := r.hosts[normalized]
	if !ok {
		return nil, persistence.ErrDomainNotFound
	}
	return d, nil
}

func (r *DomainRepository) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]*domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Domain
	for _, d := range r.hosts {
		if d.TenantID() == tenantID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host() < out[j].Host() })
	return out, nil
}

func (r *DomainRepository) Register(_ context.Context, d *domain.Domain) (*domain.Domain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hosts[d.Host()]; ok {
		return nil, persistence.ErrDomainTaken
	}
	r.hosts[d.Host()] = d
	return d, nil
}

func (r *DomainRepository) DeregisterByTenant(_ context.Context, tenantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for host, d := range r.hosts {
		if d.TenantID() == tenantID {
			delete(r.hosts, host)
		}
	}
	return nil
}

// SchemaMigrator records migration runs instead of touching a database.
// FailFor makes runs against the named schema fail until cleared, which
// lets tests exercise provisioning retries.
type SchemaMigrator struct {
	mu       sync.Mutex
	migrated map[string]int
	failFor  map[string]error
	failAll  error
}

func NewSchemaMigrator() *SchemaMigrator {
	return &SchemaMigrator{
		migrated: make(map[string]int),
		failFor:  make(map[string]error),
	}
}

func (m *SchemaMigrator) FailFor(schemaName string, err error) {
	m.mu.Lock()
	m.failFor[schemaName] = err
	m.mu.Unlock()
}

func (m *SchemaMigrator) ClearFailure(schemaName string) {
	m.mu.Lock()
	delete(m.failFor, schemaName)
	m.mu.Unlock()
}

// FailAll makes every migration run fail until ClearAll is called.
func (m *SchemaMigrator) FailAll(err error) {
	m.mu.Lock()
	m.failAll = err
	m.mu.Unlock()
}

func (m *SchemaMigrator) ClearAll() {
	m.mu.Lock()
	m.failAll = nil
	m.failFor = make(map[string]error)
	m.mu.Unlock()
}

func (m *SchemaMigrator) Runs(schemaName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.migrated[schemaName]
}

func (m *SchemaMigrator) Migrate(_ context.Context, schemaName string, _ []schema.Migration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	if err, ok := m.failFor[schemaName]; ok {
		return err
	}
	m.migrated[schemaName]++
	return nil
}

// SiteSettingRepository keeps settings per schema name, read from the scope
// bound to the calling context. Like the real repository, it has no way to
// address another tenant's settings.
type SiteSettingRepository struct {
	mu       sync.Mutex
	bySchema map[string]map[string]*sitesetting.Setting
}

func NewSiteSettingRepository() *SiteSettingRepository {
	return &SiteSettingRepository{bySchema: make(map[string]map[string]*sitesetting.Setting)}
}

func (r *SiteSettingRepository) settings(ctx context.Context) (map[string]*sitesetting.Setting, error) {
	scope, err := composables.UseScope(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := r.bySchema[scope.Schema]; !ok {
		r.bySchema[scope.Schema] = make(map[string]*sitesetting.Setting)
	}
	return r.bySchema[scope.Schema], nil
}

func (r *SiteSettingRepository) List(ctx context.Context) ([]*sitesetting.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, err := r.settings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*sitesetting.Setting, 0, len(settings))
	for _, s := range settings {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (r *SiteSettingRepository) Get(ctx context.Context, key string) (*sitesetting.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, err := r.settings(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := settings[key]
	if !ok {
		return nil, persistence.ErrSettingNotFound
	}
	return s, nil
}

func (r *SiteSettingRepository) Set(ctx context.Context, key, value string) (*sitesetting.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, err := r.settings(ctx)
	if err != nil {
		return nil, err
	}
	s, err := sitesetting.New(key, value)
	if err != nil {
		return nil, err
	}
	settings[key] = s
	return s, nil
}

func (r *SiteSettingRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, err := r.settings(ctx)
	if err != nil {
		return err
	}
	if _, ok := settings[key]; !ok {
		return persistence.ErrSettingNotFound
	}
	delete(settings, key)
	return nil
}

// SchemaDDL records schema create and drop calls. FailDropOnce makes
// the next drop of the named schema fail, which lets tests exercise
// teardown retries.
type SchemaDDL struct {
	mu       sync.Mutex
	created  map[string]bool
	dropErrs map[string]error
}

func NewSchemaDDL() *SchemaDDL {
	return &SchemaDDL{
		created:  make(map[string]bool),
		dropErrs: make(map[string]error),
	}
}

func (d *SchemaDDL) CreateSchema(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created[name] = true
	return nil
}

func (d *SchemaDDL) FailDropOnce(name string, err error) {
	d.mu.Lock()
	d.dropErrs[name] = err
	d.mu.Unlock()
}

// DropSchema follows DROP SCHEMA IF EXISTS semantics: dropping a schema
// that is not provisioned is a no-op.
func (d *SchemaDDL) DropSchema(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.dropErrs[name]; ok {
		delete(d.dropErrs, name)
		return err
	}
	d.created[name] = false
	return nil
}

// SchemaExists reports whether the schema is currently provisioned.
func (d *SchemaDDL) SchemaExists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[name]
}
