package composables_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScope_RoundTrip(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	ctx := composables.WithScope(context.Background(), composables.Scope{
		TenantID: tenantID,
		Schema:   "tenant_abc",
	})

	scope, err := composables.UseScope(ctx)
	require.NoError(t, err)
	assert.Equal(t, tenantID, scope.TenantID)
	assert.Equal(t, "tenant_abc", scope.Schema)

	got, err := composables.UseTenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, tenantID, got)
}

func TestScope_MissingFromContext(t *testing.T) {
	t.Parallel()

	_, err := composables.UseScope(context.Background())
	require.ErrorIs(t, err, composables.ErrNoScope)

	_, err = composables.UseTenantID(context.Background())
	require.ErrorIs(t, err, composables.ErrNoScope)
}

func TestMustUseScope_PanicsWithoutScope(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		composables.MustUseScope(context.Background())
	})
}

// Scopes bound on different contexts must be invisible to each other for any
// interleaving of concurrent requests.
func TestScope_IsolatedAcrossConcurrentContexts(t *testing.T) {
	t.Parallel()

	const workers = 64
	base := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tenantID := uuid.New()
			schema := "tenant_" + tenantID.String()[:8]
			ctx := composables.WithScope(base, composables.Scope{
				TenantID: tenantID,
				Schema:   schema,
			})
			for j := 0; j < 100; j++ {
				scope, err := composables.UseScope(ctx)
				if err != nil {
					t.Error(err)
					return
				}
				if scope.TenantID != tenantID || scope.Schema != schema {
					t.Errorf("scope leaked: got %v/%s, want %v/%s",
						scope.TenantID, scope.Schema, tenantID, schema)
					return
				}
			}
		}()
	}
	wg.Wait()

	// The base context stays unbound no matter how many scopes were derived.
	_, err := composables.UseScope(base)
	require.ErrorIs(t, err, composables.ErrNoScope)
}
