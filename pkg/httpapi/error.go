package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/iota-uz/nero/pkg/serrors"
)

// Error codes shared by the API namespaces. Controllers translate
// repository and service sentinels into exactly one of these.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeDomainTaken       = "DOMAIN_TAKEN"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeMigrationFailure  = "MIGRATION_FAILURE"
	CodeTenantUnavailable = "TENANT_UNAVAILABLE"
	CodeUnknownHost       = "TENANT_UNKNOWN_HOST"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteBase renders a serrors.Base preserving its code and details.
func WriteBase(w http.ResponseWriter, status int, base *serrors.Base) error {
	var meta map[string]string
	if base.Details != "" {
		meta = map[string]string{"details": base.Details}
	}
	return WriteError(w, status, base.Code, base.Message, meta)
}
