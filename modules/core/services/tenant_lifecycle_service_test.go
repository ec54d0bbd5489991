package services_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/pkg/itf"

	"github.com/iota-uz/nero/modules/core/services"
)

func TestLifecycleService_CreateTenant(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	created, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:             "Acme",
		PrimaryDomain:    "Acme.Example.COM",
		SecondaryDomains: []string{"www.acme.example.com"},
		ContactEmail:     "ops@acme.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, tenant.StateActive, created.State())
	assert.Equal(t, svc.SchemaNameFor(created.ID()), created.SchemaName())
	assert.True(t, env.DDL.SchemaExists(created.SchemaName()))
	assert.Equal(t, 1, env.Migrator.Runs(created.SchemaName()))

	resolved, err := env.TenantService().GetByHost(env.Ctx, "acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), resolved.ID())

	domains, err := env.TenantService().Domains(env.Ctx, created.ID())
	require.NoError(t, err)
	require.Len(t, domains, 2)
	for _, d := range domains {
		if d.Host() == "acme.example.com" {
			assert.True(t, d.IsPrimary())
		} else {
			assert.False(t, d.IsPrimary())
		}
	}
}

func TestLifecycleService_CreateTenant_DomainTaken(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	_, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Acme",
		PrimaryDomain: "acme.example.com",
	})
	require.NoError(t, err)

	_, err = svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Impostor",
		PrimaryDomain: "acme.example.com",
	})
	require.ErrorIs(t, err, persistence.ErrDomainTaken)
}

func TestLifecycleService_CreateTenant_MigrationFailureLeavesPending(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	boom := errors.New("step 3 failed")
	env.Migrator.FailAll(boom)

	_, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Acme",
		PrimaryDomain: "acme.example.com",
	})
	require.ErrorIs(t, err, boom)

	// The catalog keeps a pending record, so the failed attempt is visible
	// and retryable, but no domain may resolve to it.
	tenants, err := env.TenantRepo.List(env.Ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, tenant.StatePending, tenants[0].State())

	_, err = env.TenantService().GetByHost(env.Ctx, "acme.example.com")
	require.ErrorIs(t, err, persistence.ErrDomainNotFound)

	// Once migrations work again the domain is still free, so provisioning
	// can be retried.
	env.Migrator.ClearAll()
	created, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Acme",
		PrimaryDomain: "acme.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, tenant.StateActive, created.State())
}

func TestLifecycleService_DeleteTenant(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	created, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Acme",
		PrimaryDomain: "acme.example.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTenant(env.Ctx, created.ID()))

	_, err = env.TenantService().GetByHost(env.Ctx, "acme.example.com")
	require.ErrorIs(t, err, persistence.ErrDomainNotFound)

	after, err := env.TenantService().GetByID(env.Ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, tenant.StateDeleted, after.State())
	assert.False(t, env.DDL.SchemaExists(created.SchemaName()))

	// The schema name stays allocated even after deletion.
	exists, err := env.TenantRepo.SchemaNameExists(env.Ctx, created.SchemaName())
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLifecycleService_DeleteTenant_RetriesAfterDropFailure(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	created, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Acme",
		PrimaryDomain: "acme.example.com",
	})
	require.NoError(t, err)

	boom := errors.New("storage unavailable")
	env.DDL.FailDropOnce(created.SchemaName(), boom)

	err = svc.DeleteTenant(env.Ctx, created.ID())
	require.ErrorIs(t, err, boom)

	// The catalog already records the deletion and the domains are gone,
	// but the schema storage survived the failed drop.
	after, err := env.TenantService().GetByID(env.Ctx, created.ID())
	require.NoError(t, err)
	assert.Equal(t, tenant.StateDeleted, after.State())
	assert.True(t, env.DDL.SchemaExists(created.SchemaName()))

	require.NoError(t, svc.DeleteTenant(env.Ctx, created.ID()))
	assert.False(t, env.DDL.SchemaExists(created.SchemaName()))
}

func TestLifecycleService_DeleteTenant_Unknown(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	err := env.LifecycleService().DeleteTenant(env.Ctx, uuid.New())
	require.ErrorIs(t, err, persistence.ErrTenantNotFound)
}

func TestLifecycleService_ConcurrentCreate_SameDomain(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
				Name:          "Racer",
				PrimaryDomain: "racer.example.com",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, persistence.ErrDomainTaken)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestLifecycleService_MigrateTenant_Reruns(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	svc := env.LifecycleService()

	created, err := svc.CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          "Acme",
		PrimaryDomain: "acme.example.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MigrateTenant(env.Ctx, created.ID()))
	require.NoError(t, svc.MigrateTenant(env.Ctx, created.ID()))
	assert.Equal(t, 3, env.Migrator.Runs(created.SchemaName()))
}
