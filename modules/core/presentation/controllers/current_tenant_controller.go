package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/nero/modules/core/domain/entities/sitesetting"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/presentation/controllers/dtos"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/httpapi"
	"github.com/iota-uz/nero/pkg/middleware"
)

// CurrentTenantController is the tenant-facing surface: it only answers
// on hosts that resolve to an active tenant, relying on the host
// middleware to bind the scope.
type CurrentTenantController struct {
	app      application.Application
	basePath string
}

func NewCurrentTenantController(app application.Application) application.Controller {
	return &CurrentTenantController{
		app:      app,
		basePath: "/api/tenant",
	}
}

func (c *CurrentTenantController) Key() string {
	return c.basePath
}

func (c *CurrentTenantController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireTenantFromHost(c.app))
	router.HandleFunc("", c.Show).Methods(http.MethodGet)
	router.HandleFunc("/domains", c.Domains).Methods(http.MethodGet)
	router.HandleFunc("/settings", c.ListSettings).Methods(http.MethodGet)
	router.HandleFunc("/settings/{key}", c.GetSetting).Methods(http.MethodGet)
	router.HandleFunc("/settings/{key}", c.SetSetting).Methods(http.MethodPut)
	router.HandleFunc("/settings/{key}", c.DeleteSetting).Methods(http.MethodDelete)
}

func (c *CurrentTenantController) tenantService() *services.TenantService {
	return c.app.Service(services.TenantService{}).(*services.TenantService)
}

func (c *CurrentTenantController) settingsService() *services.SiteSettingsService {
	return c.app.Service(services.SiteSettingsService{}).(*services.SiteSettingsService)
}

func (c *CurrentTenantController) Show(w http.ResponseWriter, r *http.Request) {
	scope := composables.MustUseScope(r.Context())
	t, err := c.tenantService().GetByID(r.Context(), scope.TenantID)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to load current tenant")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewTenantResponse(t))
}

func (c *CurrentTenantController) Domains(w http.ResponseWriter, r *http.Request) {
	scope := composables.MustUseScope(r.Context())
	domains, err := c.tenantService().Domains(r.Context(), scope.TenantID)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Error("failed to list tenant domains")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
		return
	}
	out := make([]*dtos.DomainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, dtos.NewDomainResponse(d))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *CurrentTenantController) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := c.settingsService().List(r.Context())
	if err != nil {
		c.writeSettingsError(w, r, err)
		return
	}
	out := make([]*dtos.SiteSettingResponse, 0, len(settings))
	for _, s := range settings {
		out = append(out, dtos.NewSiteSettingResponse(s))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *CurrentTenantController) GetSetting(w http.ResponseWriter, r *http.Request) {
	s, err := c.settingsService().Get(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		c.writeSettingsError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewSiteSettingResponse(s))
}

func (c *CurrentTenantController) SetSetting(w http.ResponseWriter, r *http.Request) {
	var dto dtos.SetSiteSettingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "invalid request body", nil)
		return
	}
	if fieldErrors, ok := dto.Ok(); !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "validation failed", fieldErrors)
		return
	}

	s, err := c.settingsService().Set(r.Context(), mux.Vars(r)["key"], dto.Value)
	if err != nil {
		c.writeSettingsError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewSiteSettingResponse(s))
}

func (c *CurrentTenantController) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := c.settingsService().Delete(r.Context(), mux.Vars(r)["key"]); err != nil {
		c.writeSettingsError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *CurrentTenantController) writeSettingsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, persistence.ErrSettingNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "setting not found", nil)
	case errors.Is(err, sitesetting.ErrInvalidKey):
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, err.Error(), nil)
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("site settings operation failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
	}
}
