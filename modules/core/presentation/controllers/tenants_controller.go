package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/infrastructure/schema"
	"github.com/iota-uz/nero/modules/core/presentation/controllers/dtos"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/httpapi"
)

// TenantsController is the provisioning API. It is mounted on the admin
// surface, never on tenant hosts.
type TenantsController struct {
	app      application.Application
	basePath string
}

func NewTenantsController(app application.Application) application.Controller {
	return &TenantsController{
		app:      app,
		basePath: "/admin/tenants",
	}
}

func (c *TenantsController) Key() string {
	return c.basePath
}

func (c *TenantsController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/{id}", c.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/state", c.ChangeState).Methods(http.MethodPost)
	router.HandleFunc("/{id}/migrate", c.Migrate).Methods(http.MethodPost)
	router.HandleFunc("/{id}/domains", c.Domains).Methods(http.MethodGet)
}

func (c *TenantsController) tenantService() *services.TenantService {
	return c.app.Service(services.TenantService{}).(*services.TenantService)
}

func (c *TenantsController) lifecycleService() *services.TenantLifecycleService {
	return c.app.Service(services.TenantLifecycleService{}).(*services.TenantLifecycleService)
}

func (c *TenantsController) Create(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateTenantDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "invalid request body", nil)
		return
	}
	if fieldErrors, ok := dto.Ok(); !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "validation failed", fieldErrors)
		return
	}

	created, err := c.lifecycleService().CreateTenant(r.Context(), dto.ToCommand())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, dtos.NewTenantResponse(created))
}

func (c *TenantsController) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := c.tenantService().List(r.Context())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	out := make([]*dtos.TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, dtos.NewTenantResponse(t))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *TenantsController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := c.parseID(w, r)
	if !ok {
		return
	}
	t, err := c.tenantService().GetByID(r.Context(), id)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewTenantResponse(t))
}

func (c *TenantsController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := c.parseID(w, r)
	if !ok {
		return
	}
	if err := c.lifecycleService().DeleteTenant(r.Context(), id); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *TenantsController) ChangeState(w http.ResponseWriter, r *http.Request) {
	id, ok := c.parseID(w, r)
	if !ok {
		return
	}

	var dto dtos.ChangeStateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "invalid request body", nil)
		return
	}
	if fieldErrors, ok := dto.Ok(); !ok {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "validation failed", fieldErrors)
		return
	}

	newState, err := tenant.ParseState(dto.State)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "unknown state", nil)
		return
	}

	// Deletion tears down storage too, so it goes through the lifecycle
	// service rather than a bare state change.
	if newState == tenant.StateDeleted {
		if err := c.lifecycleService().DeleteTenant(r.Context(), id); err != nil {
			c.writeServiceError(w, r, err)
			return
		}
		t, err := c.tenantService().GetByID(r.Context(), id)
		if err != nil {
			c.writeServiceError(w, r, err)
			return
		}
		_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewTenantResponse(t))
		return
	}

	updated, err := c.tenantService().MarkState(r.Context(), id, newState)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewTenantResponse(updated))
}

func (c *TenantsController) Migrate(w http.ResponseWriter, r *http.Request) {
	id, ok := c.parseID(w, r)
	if !ok {
		return
	}
	if err := c.lifecycleService().MigrateTenant(r.Context(), id); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *TenantsController) Domains(w http.ResponseWriter, r *http.Request) {
	id, ok := c.parseID(w, r)
	if !ok {
		return
	}
	domains, err := c.tenantService().Domains(r.Context(), id)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	out := make([]*dtos.DomainResponse, 0, len(domains))
	for _, d := range domains {
		out = append(out, dtos.NewDomainResponse(d))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *TenantsController) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "invalid tenant id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (c *TenantsController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var migErr *schema.MigrationError
	switch {
	case errors.Is(err, persistence.ErrTenantNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "tenant not found", nil)
	case errors.Is(err, persistence.ErrDomainTaken):
		_ = httpapi.WriteError(w, http.StatusConflict, httpapi.CodeDomainTaken, "domain already registered", nil)
	case errors.Is(err, persistence.ErrSchemaNameConflict), errors.Is(err, persistence.ErrTenantConflict):
		_ = httpapi.WriteError(w, http.StatusConflict, httpapi.CodeConflict, "tenant conflicts with an existing one", nil)
	case errors.Is(err, tenant.ErrInvalidTransition), errors.Is(err, persistence.ErrStaleTenantState):
		_ = httpapi.WriteError(w, http.StatusConflict, httpapi.CodeInvalidTransition, "illegal state transition", nil)
	case errors.As(err, &migErr):
		composables.UseLogger(r.Context()).WithError(err).Error("tenant schema migration failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeMigrationFailure, "schema migration failed", map[string]string{
			"schema": migErr.Schema,
		})
	case errors.Is(err, persistence.ErrDomainAmbiguous):
		// Integrity defect in the catalog. Never leak which host collided.
		composables.UseLogger(r.Context()).WithError(err).Error("ambiguous host mapping")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("tenant operation failed")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
	}
}
