package core

import (
	"github.com/redis/go-redis/v9"

	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/iota-uz/nero/modules/core/presentation/controllers"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/configuration"
)

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Name() string {
	return "core"
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	tenantRepo := persistence.NewTenantRepository()

	var domainRepo domain.Repository = persistence.NewDomainRepository()
	if conf.ResolverCache.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: conf.ResolverCache.RedisURL})
		domainRepo = persistence.NewCachedDomainRepository(
			domainRepo, rdb, conf.ResolverCache.TTL, app.Logger(),
		)
	}

	executor := persistence.NewSchemaExecutor(app.DB())
	migrator := schema.NewMigrator(executor, app.Logger())
	migrationSet, err := schema.TenantMigrations()
	if err != nil {
		return err
	}

	app.RegisterServices(
		services.NewTenantService(tenantRepo, domainRepo, app.EventPublisher()),
		services.NewTenantLifecycleService(
			tenantRepo,
			domainRepo,
			migrator,
			executor,
			app.EventPublisher(),
			conf.SchemaNamePrefix,
			migrationSet,
		),
		services.NewSiteSettingsService(persistence.NewSiteSettingRepository()),
	)

	app.RegisterControllers(
		controllers.NewHealthController(app),
		controllers.NewTenantsController(app),
		controllers.NewCurrentTenantController(app),
		controllers.NewBillingWebhookController(app),
	)

	return nil
}
