package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/httpapi"
)

type HealthController struct {
	app application.Application
}

func NewHealthController(app application.Application) application.Controller {
	return &HealthController{app: app}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.Health).Methods(http.MethodGet)
}

func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if pool := c.app.DB(); pool != nil {
		if err := pool.Ping(r.Context()); err != nil {
			_ = httpapi.WriteError(w, http.StatusServiceUnavailable, "UNHEALTHY", "database unreachable", nil)
			return
		}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
