package itf

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/eventbus"
)

const TestSchemaPrefix = "tenant_"

// TestContext provides a fluent API for building test environments
// backed by the in-memory fakes. No database is required.
type TestContext struct {
	ctx          context.Context
	logger       *logrus.Logger
	schemaPrefix string
	migrations   []schema.Migration
}

// NewTestContext creates a new TestContext builder
func NewTestContext() *TestContext {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &TestContext{
		ctx:          context.Background(),
		logger:       logger,
		schemaPrefix: TestSchemaPrefix,
	}
}

// WithLogger overrides the discard logger, e.g. with a test hook.
func (tc *TestContext) WithLogger(logger *logrus.Logger) *TestContext {
	tc.logger = logger
	return tc
}

// WithSchemaPrefix sets the prefix used for derived schema names
func (tc *TestContext) WithSchemaPrefix(prefix string) *TestContext {
	tc.schemaPrefix = prefix
	return tc
}

// WithMigrations sets the tenant migration set handed to the lifecycle service
func (tc *TestContext) WithMigrations(migrations []schema.Migration) *TestContext {
	tc.migrations = migrations
	return tc
}

// Build wires fakes, services and the application registry together
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	bus := eventbus.NewEventPublisher(tc.logger)
	tenantRepo := NewTenantRepository()
	domainRepo := NewDomainRepository()
	settingsRepo := NewSiteSettingRepository()
	migrator := NewSchemaMigrator()
	ddl := NewSchemaDDL()

	app := application.New(&application.ApplicationOptions{
		EventBus: bus,
		Logger:   tc.logger,
	})
	app.RegisterServices(
		services.NewTenantService(tenantRepo, domainRepo, bus),
		services.NewTenantLifecycleService(
			tenantRepo, domainRepo, migrator, ddl, bus, tc.schemaPrefix, tc.migrations,
		),
		services.NewSiteSettingsService(settingsRepo),
	)

	ctx := composables.WithLogger(tc.ctx, logrus.NewEntry(tc.logger))
	ctx = composables.WithParams(ctx, DefaultParams())

	return &TestEnvironment{
		Ctx:          ctx,
		App:          app,
		EventBus:     bus,
		TenantRepo:   tenantRepo,
		DomainRepo:   domainRepo,
		SettingsRepo: settingsRepo,
		Migrator:     migrator,
		DDL:          ddl,
		Logger:       tc.logger,
	}
}

// TestEnvironment contains all test dependencies
type TestEnvironment struct {
	Ctx          context.Context
	App          application.Application
	EventBus     eventbus.EventBus
	TenantRepo   *TenantRepository
	DomainRepo   *DomainRepository
	SettingsRepo *SiteSettingRepository
	Migrator     *SchemaMigrator
	DDL          *SchemaDDL
	Logger       *logrus.Logger
}

// Service retrieves a service from the application
func (te *TestEnvironment) Service(service interface{}) interface{} {
	return te.App.Service(service)
}

// TenantService is a typed shortcut for the catalog service
func (te *TestEnvironment) TenantService() *services.TenantService {
	return te.App.Service(services.TenantService{}).(*services.TenantService)
}

// LifecycleService is a typed shortcut for the provisioning service
func (te *TestEnvironment) LifecycleService() *services.TenantLifecycleService {
	return te.App.Service(services.TenantLifecycleService{}).(*services.TenantLifecycleService)
}

// SiteSettingsService is a typed shortcut for the scoped settings service
func (te *TestEnvironment) SiteSettingsService() *services.SiteSettingsService {
	return te.App.Service(services.SiteSettingsService{}).(*services.SiteSettingsService)
}

func DefaultParams() *composables.Params {
	return &composables.Params{
		IP:        "127.0.0.1",
		UserAgent: "itf-test",
		RequestID: "test-request",
	}
}
