package models

import (
	"database/sql"
	"time"
)

type Tenant struct {
	ID                string
	Name              string
	SchemaName        string
	State             string
	ContactEmail      sql.NullString
	NotificationEmail sql.NullString
	PrimaryColor      sql.NullString
	SecondaryColor    sql.NullString
	Theme             sql.NullString
	AnalyticsID       sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Domain struct {
	ID        string
	Host      string
	TenantID  string
	IsPrimary bool
	CreatedAt time.Time
}

// SiteSetting rows live in the tenant schema, not the catalog.
type SiteSetting struct {
	Key       string
	Value     sql.NullString
	UpdatedAt time.Time
}
