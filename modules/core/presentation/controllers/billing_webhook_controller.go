package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/configuration"
	"github.com/iota-uz/nero/pkg/httpapi"
	"github.com/iota-uz/nero/pkg/webhooks"
)

const (
	eventSubscriptionSuspended = "subscription.suspended"
	eventSubscriptionActivated = "subscription.activated"
)

type billingEvent struct {
	Event    string    `json:"event"`
	TenantID uuid.UUID `json:"tenant_id"`
}

// BillingWebhookController receives subscription events from the billing
// provider and drives tenant suspension and reactivation. Signature and
// replay checks happen in the webhooks middleware before the handler runs.
type BillingWebhookController struct {
	app  application.Application
	path string
}

func NewBillingWebhookController(app application.Application) application.Controller {
	conf := configuration.Use()
	path := conf.Billing.WebhookPath
	if path == "" {
		path = "/webhooks/billing"
	}
	return &BillingWebhookController{app: app, path: path}
}

func (c *BillingWebhookController) Key() string {
	return c.path
}

func (c *BillingWebhookController) Register(r *mux.Router) {
	conf := configuration.Use()
	sub := webhooks.Bind(
		r,
		c.path,
		webhooks.NewHMACVerifier(conf.Billing.WebhookSecret, ""),
		webhooks.NewMemoryReplayProtector("", 10*time.Minute),
	)
	sub.HandleFunc("", c.Handle).Methods(http.MethodPost)
}

func (c *BillingWebhookController) Handle(w http.ResponseWriter, r *http.Request) {
	var evt billingEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "invalid webhook payload", nil)
		return
	}
	if evt.TenantID == uuid.Nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, httpapi.CodeValidation, "missing tenant_id", nil)
		return
	}

	var target tenant.State
	switch evt.Event {
	case eventSubscriptionSuspended:
		target = tenant.StateSuspended
	case eventSubscriptionActivated:
		target = tenant.StateActive
	default:
		// Unknown events are acknowledged so the provider stops retrying.
		_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	tenantService := c.app.Service(services.TenantService{}).(*services.TenantService)
	if _, err := tenantService.MarkState(r.Context(), evt.TenantID, target); err != nil {
		switch {
		case errors.Is(err, persistence.ErrTenantNotFound):
			_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeNotFound, "tenant not found", nil)
		case errors.Is(err, tenant.ErrInvalidTransition):
			// Already in the target or a terminal state. Acknowledge, the
			// provider's view is simply behind ours.
			_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "noop"})
		default:
			composables.UseLogger(r.Context()).WithError(err).Error("billing webhook failed")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
		}
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
