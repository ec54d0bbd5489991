package persistence

import (
	"database/sql"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/iota-uz/nero/modules/core/domain/entities/domain"
	"github.com/iota-uz/nero/modules/core/domain/entities/sitesetting"
	"github.com/iota-uz/nero/modules/core/domain/entities/tenant"
	"github.com/iota-uz/nero/modules/core/infrastructure/persistence/models"
)

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func stringOrEmpty(value sql.NullString) string {
	if value.Valid {
		return value.String
	}
	return ""
}

func toDomainTenant(t *models.Tenant) (*tenant.Tenant, error) {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tenant id")
	}
	state, err := tenant.ParseState(t.State)
	if err != nil {
		return nil, errors.Wrap(err, "invalid tenant state")
	}

	return tenant.New(
		t.Name,
		tenant.WithID(id),
		tenant.WithSchemaName(t.SchemaName),
		tenant.WithState(state),
		tenant.WithContactEmail(stringOrEmpty(t.ContactEmail)),
		tenant.WithNotificationEmail(stringOrEmpty(t.NotificationEmail)),
		tenant.WithBranding(
			stringOrEmpty(t.PrimaryColor),
			stringOrEmpty(t.SecondaryColor),
			stringOrEmpty(t.Theme),
		),
		tenant.WithAnalyticsID(stringOrEmpty(t.AnalyticsID)),
		tenant.WithCreatedAt(t.CreatedAt),
		tenant.WithUpdatedAt(t.UpdatedAt),
	), nil
}

func toDomainSiteSetting(s *models.SiteSetting) *sitesetting.Setting {
	return sitesetting.Hydrate(s.Key, stringOrEmpty(s.Value), s.UpdatedAt)
}

func toDomainDomain(d *models.Domain) (*domain.Domain, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid domain id")
	}
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid domain tenant id")
	}

	return domain.New(
		d.Host,
		tenantID,
		domain.WithID(id),
		domain.WithPrimary(d.IsPrimary),
		domain.WithCreatedAt(d.CreatedAt),
	)
}
