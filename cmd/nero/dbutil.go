package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/configuration"
	"github.com/iota-uz/nero/pkg/eventbus"
)

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	conf := configuration.Use()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return pool, nil
}

// poolContext makes repositories usable outside the HTTP stack.
func poolContext(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return composables.WithPool(ctx, pool)
}

func buildServices(pool *pgxpool.Pool) (*services.TenantService, *services.TenantLifecycleService, error) {
	conf := configuration.Use()

	tenantRepo := persistence.NewTenantRepository()
	domainRepo := persistence.NewDomainRepository()
	executor := persistence.NewSchemaExecutor(pool)
	migrator := schema.NewMigrator(executor, conf.Logger())
	migrationSet, err := schema.TenantMigrations()
	if err != nil {
		return nil, nil, err
	}

	bus := eventbus.NewEventPublisher(conf.Logger())
	tenantService := services.NewTenantService(tenantRepo, domainRepo, bus)
	lifecycleService := services.NewTenantLifecycleService(
		tenantRepo, domainRepo, migrator, executor, bus, conf.SchemaNamePrefix, migrationSet,
	)
	return tenantService, lifecycleService, nil
}
