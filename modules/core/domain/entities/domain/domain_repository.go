package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the durable host-name-to-tenant mapping. Lookups run on every
// inbound request and must stay O(1) amortized (index on host).
type Repository interface {
	// GetByHost resolves a normalized host to its domain record. Exactly one
	// row may match; more than one is a data-integrity defect.
	GetByHost(ctx context.Context, host string) (*Domain, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Domain, error)
	// Register records the domain. Registering an already-taken host is a
	// conflict regardless of owning tenant.
	Register(ctx context.Context, d *Domain) (*Domain, error)
	// DeregisterByTenant removes every domain owned by the tenant, so no new
	// request can resolve to it mid-teardown.
	DeregisterByTenant(ctx context.Context, tenantID uuid.UUID) error
}
