package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/nero/modules/core/presentation/controllers"
	"github.com/iota-uz/nero/modules/core/presentation/controllers/dtos"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/itf"
	"github.com/iota-uz/nero/pkg/middleware"
)

func setupTenantRouter(t *testing.T, env *itf.TestEnvironment) *mux.Router {
	t.Helper()

	r := mux.NewRouter()
	r.Use(middleware.WithLogger(env.Logger))
	controllers.NewCurrentTenantController(env.App).Register(r)
	return r
}

func provisionTenant(t *testing.T, env *itf.TestEnvironment, name, host string) {
	t.Helper()

	_, err := env.LifecycleService().CreateTenant(env.Ctx, services.CreateTenantCommand{
		Name:          name,
		PrimaryDomain: host,
	})
	require.NoError(t, err)
}

func doJSON(t *testing.T, router *mux.Router, method, host, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "http://"+host+path, body)
	req.Host = host
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCurrentTenantController_Show(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	router := setupTenantRouter(t, env)
	provisionTenant(t, env, "Acme", "acme.example.com")

	rec := doJSON(t, router, http.MethodGet, "acme.example.com", "/api/tenant", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dtos.TenantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acme", resp.Name)
	assert.Equal(t, "active", resp.State)
}

func TestCurrentTenantController_Settings_RoundTrip(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	router := setupTenantRouter(t, env)
	provisionTenant(t, env, "Acme", "acme.example.com")

	rec := doJSON(t, router, http.MethodPut, "acme.example.com", "/api/tenant/settings/site.title",
		dtos.SetSiteSettingDTO{Value: "Acme Store"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "acme.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var setting dtos.SiteSettingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &setting))
	assert.Equal(t, "site.title", setting.Key)
	assert.Equal(t, "Acme Store", setting.Value)

	rec = doJSON(t, router, http.MethodGet, "acme.example.com", "/api/tenant/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dtos.SiteSettingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = doJSON(t, router, http.MethodDelete, "acme.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "acme.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCurrentTenantController_Settings_IsolatedPerTenant(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	router := setupTenantRouter(t, env)
	provisionTenant(t, env, "Acme", "acme.example.com")
	provisionTenant(t, env, "Globex", "globex.example.com")

	rec := doJSON(t, router, http.MethodPut, "acme.example.com", "/api/tenant/settings/site.title",
		dtos.SetSiteSettingDTO{Value: "Acme Store"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodPut, "globex.example.com", "/api/tenant/settings/site.title",
		dtos.SetSiteSettingDTO{Value: "Globex Portal"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Same key, different schema, different value. Neither tenant can see
	// or affect the other's row.
	rec = doJSON(t, router, http.MethodGet, "acme.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acme dtos.SiteSettingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acme))
	assert.Equal(t, "Acme Store", acme.Value)

	rec = doJSON(t, router, http.MethodGet, "globex.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var globex dtos.SiteSettingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &globex))
	assert.Equal(t, "Globex Portal", globex.Value)

	rec = doJSON(t, router, http.MethodDelete, "globex.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "acme.example.com", "/api/tenant/settings/site.title", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentTenantController_Settings_InvalidKey(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	router := setupTenantRouter(t, env)
	provisionTenant(t, env, "Acme", "acme.example.com")

	rec := doJSON(t, router, http.MethodPut, "acme.example.com", "/api/tenant/settings/bad%20key",
		dtos.SetSiteSettingDTO{Value: "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "VALIDATION_ERROR", payload["code"])
}

func TestCurrentTenantController_UnknownHostGetsNoSettings(t *testing.T) {
	env := itf.NewTestContext().Build(t)
	router := setupTenantRouter(t, env)
	provisionTenant(t, env, "Acme", "acme.example.com")

	rec := doJSON(t, router, http.MethodGet, "stranger.example.com", "/api/tenant/settings", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "TENANT_UNKNOWN_HOST", payload["code"])
}
