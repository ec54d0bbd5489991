package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/eventbus"
	"github.com/iota-uz/nero/pkg/metrics"
)

// SchemaMigrator applies a versioned migration set to a named schema.
type SchemaMigrator interface {
	Migrate(ctx context.Context, schemaName string, target []schema.Migration) error
}

// SchemaDDL is the slice of the data-layer collaborator that physically
// creates and drops schema storage.
type SchemaDDL interface {
	CreateSchema(ctx context.Context, name string) error
	DropSchema(ctx context.Context, name string) error
}

type CreateTenantCommand struct {
	Name             string
	PrimaryDomain    string
	SecondaryDomains []string

	ContactEmail      string
	NotificationEmail string
	PrimaryColor      string
	SecondaryColor    string
	Theme             string
	AnalyticsID       string
}

// TenantLifecycleService orchestrates tenant provisioning and teardown:
// schema allocation, catalog records, migration, domain registration. Step
// ordering guarantees a domain is never registered before its schema is
// confirmed migratable.
type TenantLifecycleService struct {
	repo         tenant.Repository
	domainRepo   domain.Repository
	migrator     SchemaMigrator
	ddl          SchemaDDL
	publisher    eventbus.EventBus
	schemaPrefix string
	migrationSet []schema.Migration
}

func NewTenantLifecycleService(
	repo tenant.Repository,
	domainRepo domain.Repository,
	migrator SchemaMigrator,
	ddl SchemaDDL,
	publisher eventbus.EventBus,
	schemaPrefix string,
	migrationSet []schema.Migration,
) *TenantLifecycleService {
	return &TenantLifecycleService{
		repo:         repo,
		domainRepo:   domainRepo,
		migrator:     migrator,
		ddl:          ddl,
		publisher:    publisher,
		schemaPrefix: schemaPrefix,
		migrationSet: migrationSet,
	}
}

// SchemaNameFor derives the schema name deterministically from the tenant id.
func (s *TenantLifecycleService) SchemaNameFor(id uuid.UUID) string {
	return s.schemaPrefix + strings.ReplaceAll(id.String(), "-", "")
}

func (s *TenantLifecycleService) CreateTenant(ctx context.Context, cmd CreateTenantCommand) (*tenant.Tenant, error) {
	hosts, err := normalizeDomainSet(cmd.PrimaryDomain, cmd.SecondaryDomains)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	schemaName := s.SchemaNameFor(id)

	// Record the tenant as pending before touching schema storage, so a
	// failure at any later step leaves a retryable descriptor and never an
	// orphaned domain.
	var created *tenant.Tenant
	err = composables.InTx(ctx, func(txCtx context.Context) error {
		for _, host := range hosts {
			if _, err := s.domainRepo.GetByHost(txCtx, host); err == nil {
				return fmt.Errorf("%w: %s", persistence.ErrDomainTaken, host)
			} else if !isNotFound(err) {
				return err
			}
		}

		exists, err := s.repo.SchemaNameExists(txCtx, schemaName)
		if err != nil {
			return err
		}
		if exists {
			return persistence.ErrSchemaNameConflict
		}

		created, err = s.repo.Create(txCtx, tenant.New(
			cmd.Name,
			tenant.WithID(id),
			tenant.WithSchemaName(schemaName),
			tenant.WithContactEmail(cmd.ContactEmail),
			tenant.WithNotificationEmail(cmd.NotificationEmail),
			tenant.WithBranding(cmd.PrimaryColor, cmd.SecondaryColor, cmd.Theme),
			tenant.WithAnalyticsID(cmd.AnalyticsID),
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	// Schema creation and migration run outside the catalog transaction: a
	// migration failure leaves the tenant pending with partial migration
	// progress recorded, which is safe to retry. No domain exists yet.
	if err := s.ddl.CreateSchema(ctx, schemaName); err != nil {
		return nil, err
	}
	if err := s.runMigrations(ctx, schemaName); err != nil {
		return nil, err
	}

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		for i, host := range hosts {
			d, err := domain.New(host, created.ID(), domain.WithPrimary(i == 0))
			if err != nil {
				return err
			}
			if _, err := s.domainRepo.Register(txCtx, d); err != nil {
				return err
			}
		}
		return s.repo.UpdateState(txCtx, created.ID(), tenant.StatePending, tenant.StateActive)
	})
	if err != nil {
		return nil, err
	}

	activated, err := s.repo.GetByID(ctx, created.ID())
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(&tenant.CreatedEvent{Result: activated})
	return activated, nil
}

// DeleteTenant deregisters the tenant's domains first, so no new request can
// resolve to it mid-teardown, then transitions the catalog record and finally
// drops the underlying schema storage.
func (s *TenantLifecycleService) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	var schemaName string
	err := composables.InTx(ctx, func(txCtx context.Context) error {
		t, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		schemaName = t.SchemaName()

		if err := s.domainRepo.DeregisterByTenant(txCtx, id); err != nil {
			return err
		}

		// A retry after a failed storage drop finds the record already
		// deleted; only the drop is re-issued then.
		if t.State() == tenant.StateDeleted {
			return nil
		}
		from := t.State()
		if err := t.Transition(tenant.StateDeleted); err != nil {
			return err
		}
		return s.repo.UpdateState(txCtx, id, from, tenant.StateDeleted)
	})
	if err != nil {
		return err
	}

	// Storage teardown happens only after the catalog transition succeeded.
	if err := s.ddl.DropSchema(ctx, schemaName); err != nil {
		return err
	}

	s.publisher.Publish(&tenant.DeletedEvent{TenantID: id, SchemaName: schemaName})
	return nil
}

// MigrateTenant re-runs the current migration set against an existing
// tenant's schema: a no-op when up to date, a resume after a failed step.
func (s *TenantLifecycleService) MigrateTenant(ctx context.Context, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.runMigrations(ctx, t.SchemaName())
}

func (s *TenantLifecycleService) runMigrations(ctx context.Context, schemaName string) error {
	start := time.Now()
	err := s.migrator.Migrate(ctx, schemaName, s.migrationSet)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.MigrationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return err
}

func normalizeDomainSet(primary string, secondaries []string) ([]string, error) {
	primaryHost, err := domain.NormalizeHost(primary)
	if err != nil {
		return nil, fmt.Errorf("invalid primary domain: %w", err)
	}

	hosts := []string{primaryHost}
	seen := map[string]struct{}{primaryHost: {}}
	for _, raw := range secondaries {
		host, err := domain.NormalizeHost(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid secondary domain %q: %w", raw, err)
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	return hosts, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, persistence.ErrDomainNotFound)
}
