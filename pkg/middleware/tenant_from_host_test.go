package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/itf"
	"github.com/iota-uz/nero/pkg/middleware"
)

func setupRouter(t *testing.T, env *itf.TestEnvironment, handler http.HandlerFunc) *mux.Router {
	t.Helper()

	r := mux.NewRouter()
	r.Use(
		middleware.WithLogger(env.Logger),
		middleware.RequireTenantFromHost(env.App),
	)
	r.PathPrefix("/").Handler(handler)
	return r
}

func createTenant(t *testing.T, env *itf.TestEnvironment, name, primaryDomain string) *tenant.Tenant {
	t.Helper()

	created, err := env.LifecycleService().CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          name,
		PrimaryDomain: primaryDomain,
	})
	require.NoError(t, err)
	return created
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestRequireTenantFromHost_BindsScope(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	created := createTenant(t, env, "Acme", "acme.example.com")

	var seen composables.Scope
	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		scope, err := composables.UseScope(r.Context())
		require.NoError(t, err)
		seen = scope
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/dashboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID(), seen.TenantID)
	assert.Equal(t, created.SchemaName(), seen.Schema)
}

func TestRequireTenantFromHost_StripsPortFromHost(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	createTenant(t, env, "Acme", "acme.example.com")

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	req.Host = "ACME.example.com:8443"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireTenantFromHost_UnknownHost(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	createTenant(t, env, "Acme", "acme.example.com")

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for unknown hosts")
	})

	req := httptest.NewRequest(http.MethodGet, "http://ghost.example.com/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	payload := decodeEnvelope(t, rec)
	assert.Equal(t, "TENANT_UNKNOWN_HOST", payload["code"])
}

func TestRequireTenantFromHost_AmbiguousHostIsAnInternalError(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	env := itf.NewTestContext().WithLogger(logger).Build(t)
	createTenant(t, env, "Acme", "acme.example.com")

	// Two catalog rows claiming the same host can only come from a corrupted
	// catalog; the map-backed fake cannot produce it, so inject the error.
	env.DomainRepo.FailGetByHost("acme.example.com", persistence.ErrDomainAmbiguous)

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when host resolution is ambiguous")
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	payload := decodeEnvelope(t, rec)
	assert.Equal(t, "INTERNAL", payload["code"])

	// The colliding host is logged for the operator, never echoed to the client.
	assert.NotContains(t, rec.Body.String(), "acme.example.com")
	logged := false
	for _, entry := range hook.Entries {
		if entry.Level == logrus.ErrorLevel && entry.Data["host"] == "acme.example.com" {
			logged = true
		}
	}
	assert.True(t, logged, "ambiguous host must be logged as a defect")
}

func TestRequireTenantFromHost_SuspendedTenant(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	created := createTenant(t, env, "Acme", "acme.example.com")

	_, err := env.TenantService().MarkState(env.Ctx, created.ID(), tenant.StateSuspended)
	require.NoError(t, err)

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for suspended tenants")
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	payload := decodeEnvelope(t, rec)
	assert.Equal(t, "TENANT_UNAVAILABLE", payload["code"])
}

func TestRequireTenantFromHost_ReactivatedTenantServesAgain(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	created := createTenant(t, env, "Acme", "acme.example.com")

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := env.TenantService().MarkState(env.Ctx, created.ID(), tenant.StateSuspended)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	_, err = env.TenantService().MarkState(env.Ctx, created.ID(), tenant.StateActive)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireTenantFromHost_ConcurrentRequestsStayIsolated(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	acme := createTenant(t, env, "Acme", "acme.example.com")
	globex := createTenant(t, env, "Globex", "globex.example.com")

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		scope := composables.MustUseScope(r.Context())
		w.Header().Set("X-Schema", scope.Schema)
		w.WriteHeader(http.StatusOK)
	})

	hosts := map[string]string{
		"acme.example.com":   acme.SchemaName(),
		"globex.example.com": globex.SchemaName(),
	}

	var wg sync.WaitGroup
	for host, wantSchema := range hosts {
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(host, wantSchema string) {
				defer wg.Done()
				req := httptest.NewRequest(http.MethodGet, "http://"+host+"/", nil)
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, req)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, wantSchema, rec.Header().Get("X-Schema"))
			}(host, wantSchema)
		}
	}
	wg.Wait()
}

func TestRequireTenantFromHost_ScopeDoesNotOutliveRequest(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	createTenant(t, env, "Acme", "acme.example.com")

	router := setupRouter(t, env, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.example.com/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := composables.UseScope(context.Background())
	require.ErrorIs(t, err, composables.ErrNoScope)
}
