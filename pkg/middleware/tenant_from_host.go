package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/application"
	"github.com/iota-uz/nero/pkg/composables"
	"github.com/iota-uz/nero/pkg/httpapi"
	"github.com/iota-uz/nero/pkg/metrics"
)

// RequireTenantFromHost resolves the request host to a tenant and binds
// the tenant scope to the request context. The scope lives only as long
// as the request: nothing global is mutated, so concurrent requests for
// different tenants never observe each other's scope.
//
// Unknown hosts get 404, hosts owned by a non-active tenant get 403.
func RequireTenantFromHost(app application.Application) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := normalizeHost(r.Host)
			if host == "" {
				metrics.ResolverLookups.WithLabelValues("unknown_host").Inc()
				_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeUnknownHost, "unknown host", nil)
				return
			}

			tenantService := app.Service(services.TenantService{}).(*services.TenantService)
			t, err := tenantService.GetByHost(r.Context(), host)
			if err != nil {
				logger := composables.UseLogger(r.Context())
				switch {
				case errors.Is(err, persistence.ErrDomainNotFound), errors.Is(err, persistence.ErrTenantNotFound):
					metrics.ResolverLookups.WithLabelValues("unknown_host").Inc()
					logger.WithField("host", host).Warn("tenant not found for host")
					_ = httpapi.WriteError(w, http.StatusNotFound, httpapi.CodeUnknownHost, "unknown host", map[string]string{
						"host": host,
					})
				case errors.Is(err, persistence.ErrDomainAmbiguous):
					// Multiple rows for one host is a catalog integrity
					// defect, not a client error. Hide the detail.
					metrics.ResolverLookups.WithLabelValues("error").Inc()
					logger.WithField("host", host).WithError(err).Error("ambiguous host mapping")
					_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
				default:
					metrics.ResolverLookups.WithLabelValues("error").Inc()
					logger.WithField("host", host).WithError(err).Error("host resolution failed")
					_ = httpapi.WriteError(w, http.StatusInternalServerError, httpapi.CodeInternal, "internal server error", nil)
				}
				return
			}

			if t.State() != tenant.StateActive {
				metrics.ResolverLookups.WithLabelValues("unavailable").Inc()
				composables.UseLogger(r.Context()).WithFields(map[string]interface{}{
					"host":   host,
					"tenant": t.ID().String(),
					"state":  string(t.State()),
				}).Warn("tenant not active")
				_ = httpapi.WriteError(w, http.StatusForbidden, httpapi.CodeTenantUnavailable, "tenant is not available", nil)
				return
			}

			metrics.ResolverLookups.WithLabelValues("ok").Inc()
			scope := composables.Scope{
				TenantID: t.ID(),
				Schema:   t.SchemaName(),
			}

			captured := &responseCaptureWriter{ResponseWriter: w}
			next.ServeHTTP(captured, r.WithContext(composables.WithScope(r.Context(), scope)))

			metrics.RequestsTotal.WithLabelValues(
				t.SchemaName(), r.Method, strconv.Itoa(captured.Status()),
			).Inc()
		})
	}
}

func normalizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = strings.ToLower(raw)
	if h, _, err := net.SplitHostPort(raw); err == nil {
		return strings.ToLower(strings.TrimSpace(h))
	}
	return raw
}
