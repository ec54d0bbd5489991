package dtos

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/domain/entities/sitesetting"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/services"
	"github.com/iota-uz/nero/pkg/constants"
)

type CreateTenantDTO struct {
	Name             string   `json:"name" validate:"required,min=1,max=200"`
	PrimaryDomain    string   `json:"primary_domain" validate:"required,hostname_rfc1123"`
	SecondaryDomains []string `json:"secondary_domains" validate:"omitempty,dive,hostname_rfc1123"`

	ContactEmail      string `json:"contact_email" validate:"omitempty,email"`
	NotificationEmail string `json:"notification_email" validate:"omitempty,email"`
	PrimaryColor      string `json:"primary_color" validate:"omitempty,hexcolor"`
	SecondaryColor    string `json:"secondary_color" validate:"omitempty,hexcolor"`
	Theme             string `json:"theme" validate:"omitempty,max=100"`
	AnalyticsID       string `json:"analytics_id" validate:"omitempty,max=100"`
}

func (d *CreateTenantDTO) Ok() (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, false
}

func (d *CreateTenantDTO) ToCommand() services.CreateTenantCommand {
	return services.CreateTenantCommand{
		Name:              d.Name,
		PrimaryDomain:     d.PrimaryDomain,
		SecondaryDomains:  d.SecondaryDomains,
		ContactEmail:      d.ContactEmail,
		NotificationEmail: d.NotificationEmail,
		PrimaryColor:      d.PrimaryColor,
		SecondaryColor:    d.SecondaryColor,
		Theme:             d.Theme,
		AnalyticsID:       d.AnalyticsID,
	}
}

type ChangeStateDTO struct {
	State string `json:"state" validate:"required,oneof=active suspended deleted"`
}

func (d *ChangeStateDTO) Ok() (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, false
}

type SetSiteSettingDTO struct {
	Value string `json:"value" validate:"max=10000"`
}

func (d *SetSiteSettingDTO) Ok() (map[string]string, bool) {
	errorMessages := map[string]string{}
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return errorMessages, true
	}
	for _, err := range errs.(validator.ValidationErrors) {
		errorMessages[err.Field()] = err.Tag()
	}
	return errorMessages, false
}

type TenantResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SchemaName string    `json:"schema_name"`
	State      string    `json:"state"`

	ContactEmail      string `json:"contact_email,omitempty"`
	NotificationEmail string `json:"notification_email,omitempty"`
	PrimaryColor      string `json:"primary_color,omitempty"`
	SecondaryColor    string `json:"secondary_color,omitempty"`
	Theme             string `json:"theme,omitempty"`
	AnalyticsID       string `json:"analytics_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewTenantResponse(t *tenant.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:                t.ID(),
		Name:              t.Name(),
		SchemaName:        t.SchemaName(),
		State:             string(t.State()),
		ContactEmail:      t.ContactEmail(),
		NotificationEmail: t.NotificationEmail(),
		PrimaryColor:      t.PrimaryColor(),
		SecondaryColor:    t.SecondaryColor(),
		Theme:             t.Theme(),
		AnalyticsID:       t.AnalyticsID(),
		CreatedAt:         t.CreatedAt(),
		UpdatedAt:         t.UpdatedAt(),
	}
}

type SiteSettingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSiteSettingResponse(s *sitesetting.Setting) *SiteSettingResponse {
	return &SiteSettingResponse{
		Key:       s.Key(),
		Value:     s.Value(),
		UpdatedAt: s.UpdatedAt(),
	}
}

type DomainResponse struct {
	ID        uuid.UUID `json:"id"`
	Host      string    `json:"host"`
	TenantID  uuid.UUID `json:"tenant_id"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

func NewDomainResponse(d *domain.Domain) *DomainResponse {
	return &DomainResponse{
		ID:        d.ID(),
		Host:      d.Host(),
		TenantID:  d.TenantID(),
		IsPrimary: d.IsPrimary(),
		CreatedAt: d.CreatedAt(),
	}
}
